package bridge

import (
	"sync"

	"rxsql/internal/binding"
	"rxsql/internal/reactive"
	"rxsql/internal/render"
)

// The legacy blocking path wraps a synchronous executor behind the same
// subscription contract. It pumps under a mutex because it does not
// participate in the non-blocking demand machinery, and it shares no mutable
// state with it.

// Cursor is the synchronous analogue of a row stream. FetchNext returns a nil
// record at end of stream.
type Cursor interface {
	FetchNext() (binding.Record, error)
	Close() error
}

// BlockingExecutor executes queries synchronously.
type BlockingExecutor interface {
	OpenCursor(q render.Query) (Cursor, error)
	ExecuteUpdate(q render.Query) (int64, error)
}

type blockingRecordSubscription struct {
	subscription[binding.Record]

	mu     sync.Mutex
	exec   BlockingExecutor
	query  render.Query
	cursor Cursor
}

func newBlockingRecordSubscription(cfg *Configuration, q render.Query, downstream reactive.Subscriber[binding.Record]) *blockingRecordSubscription {
	s := &blockingRecordSubscription{exec: cfg.Executor, query: q}
	s.downstream = downstream
	s.pump = s.pump0
	s.terminate = s.terminate0
	return s
}

func (s *blockingRecordSubscription) pump0() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor == nil {
		c, err := s.exec.OpenCursor(s.query)
		if err != nil {
			s.fail(err)
			return
		}
		s.cursor = c
	}

	for s.moreRequested() {
		rec, err := s.cursor.FetchNext()
		if err != nil {
			s.fail(err)
			return
		}
		if rec == nil {
			if s.completed.CompareAndSwap(false, true) {
				s.closeCursor()
				s.downstream.OnComplete()
			}
			return
		}
		s.downstream.OnNext(rec)
	}
}

func (s *blockingRecordSubscription) fail(err error) {
	if s.completed.CompareAndSwap(false, true) {
		s.closeCursor()
		s.downstream.OnError(err)
	}
}

// terminate0 must not take the pump mutex: a downstream may cancel from
// within OnNext while the pump still holds it.
func (s *blockingRecordSubscription) terminate0(bool) {
	s.closeCursor()
}

func (s *blockingRecordSubscription) closeCursor() {
	if s.cursor != nil {
		_ = s.cursor.Close()
		s.cursor = nil
	}
}

type blockingRowCountSubscription struct {
	subscription[int64]

	mu    sync.Mutex
	exec  BlockingExecutor
	query render.Query
}

func newBlockingRowCountSubscription(cfg *Configuration, q render.Query, downstream reactive.Subscriber[int64]) *blockingRowCountSubscription {
	s := &blockingRowCountSubscription{exec: cfg.Executor, query: q}
	s.downstream = downstream
	s.pump = s.pump0
	return s
}

func (s *blockingRowCountSubscription) pump0() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed.Load() {
		return
	}

	n, err := s.exec.ExecuteUpdate(s.query)
	if err != nil {
		if s.completed.CompareAndSwap(false, true) {
			s.downstream.OnError(err)
		}
		return
	}

	s.downstream.OnNext(n)
	if s.completed.CompareAndSwap(false, true) {
		s.downstream.OnComplete()
	}
}
