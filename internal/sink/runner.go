package sink

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"rxsql/internal/binding"
	"rxsql/internal/reactive"
)

// Result contains stats about one completed run.
type Result struct {
	Rows     int64
	Duration time.Duration
}

// Run subscribes the encoder to a record publisher and blocks until the
// stream terminates or ctx is cancelled. Demand is windowed: window rows are
// requested up front and the window is refilled at its halfway mark, so the
// producer never runs more than window rows ahead of the encoder.
func Run(ctx context.Context, pub reactive.Publisher[binding.Record], enc RecordEncoder, window int64) (Result, error) {
	if window <= 0 {
		window = 500
	}

	start := time.Now()
	done := make(chan error, 1)
	s := &runSubscriber{enc: enc, window: window, done: done}
	pub.Subscribe(s)

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		s.cancel()
		err = ctx.Err()
	}

	if err != nil {
		return Result{}, err
	}
	if err := enc.Close(); err != nil {
		return Result{}, fmt.Errorf("closing encoder: %w", err)
	}
	return Result{Rows: s.rows.Load(), Duration: time.Since(start)}, nil
}

type runSubscriber struct {
	enc     RecordEncoder
	window  int64
	done    chan error
	rows    atomic.Int64
	pending atomic.Int64

	sub       reactive.Subscription
	wroteHead bool
	finished  atomic.Bool
}

func (s *runSubscriber) cancel() {
	if s.sub != nil {
		s.sub.Cancel()
	}
}

func (s *runSubscriber) finish(err error) {
	if !s.finished.Swap(true) {
		s.done <- err
	}
}

func (s *runSubscriber) OnSubscribe(sub reactive.Subscription) {
	s.sub = sub
	s.pending.Store(s.window)
	sub.Request(s.window)
}

func (s *runSubscriber) OnNext(rec binding.Record) {
	if !s.wroteHead {
		s.wroteHead = true
		if err := s.enc.WriteHeader(columnsOf(rec)); err != nil {
			s.cancel()
			s.finish(fmt.Errorf("writing header: %w", err))
			return
		}
	}

	if err := s.enc.WriteRecord(rec); err != nil {
		s.cancel()
		s.finish(fmt.Errorf("writing record: %w", err))
		return
	}
	s.rows.Add(1)

	// Refill at the low-water mark.
	if p := s.pending.Add(-1); p <= s.window/2 {
		s.pending.Add(s.window - p)
		s.sub.Request(s.window - p)
	}
}

func (s *runSubscriber) OnError(err error) {
	s.finish(err)
}

func (s *runSubscriber) OnComplete() {
	if err := s.enc.Flush(); err != nil {
		s.finish(fmt.Errorf("flushing encoder: %w", err))
		return
	}
	s.finish(nil)
}
