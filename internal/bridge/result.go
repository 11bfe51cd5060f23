package bridge

import (
	"fmt"
	"math"
	"sync/atomic"

	"rxsql/internal/binding"
	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
)

// resultSubscriber consumes the Result stream of one executed statement. The
// onResult capability decides what a Result means: an update count to
// forward, or a row stream to map into records.
type resultSubscriber[T any] struct {
	downstream *nonBlockingSubscription[T]
	completed  atomic.Bool
	onResult   func(r rdbc.Result)
}

func (rs *resultSubscriber[T]) OnSubscribe(s reactive.Subscription) {
	// The driver paces results itself; demand control happens per row in the
	// forwarders.
	s.Request(math.MaxInt64)
}

func (rs *resultSubscriber[T]) OnNext(r rdbc.Result) {
	rs.onResult(r)
}

func (rs *resultSubscriber[T]) OnError(err error) {
	rs.downstream.deliverError(err)
}

func (rs *resultSubscriber[T]) OnComplete() {
	rs.completed.Store(true)
	rs.tryComplete()
}

// tryComplete finishes the subscription once the result stream is done and no
// forwarder is still relaying rows.
func (rs *resultSubscriber[T]) tryComplete() {
	if rs.completed.Load() && rs.downstream.forwardersEmpty() {
		rs.downstream.complete(false)
	}
}

// newRowCountResultSubscriber forwards each result's update count downstream.
func newRowCountResultSubscriber(d *nonBlockingSubscription[int64]) *resultSubscriber[int64] {
	rs := &resultSubscriber[int64]{downstream: d}
	rs.onResult = func(r rdbc.Result) {
		r.RowsUpdated().Subscribe(addForwarder[int64, int64](rs, func(n int64) (int64, bool) {
			return n, true
		}))
	}
	return rs
}

// newRecordResultSubscriber maps each result's rows into records through the
// binding layer. The field list is resolved once per statement execution; it
// cannot change between results of the same query.
func newRecordResultSubscriber(q ResultQuery, d *nonBlockingSubscription[binding.Record]) *resultSubscriber[binding.Record] {
	rs := &resultSubscriber[binding.Record]{downstream: d}

	var fields []binding.Field
	rs.onResult = func(r rdbc.Result) {
		mapped := r.Map(func(row rdbc.Row, meta rdbc.RowMetadata) any {
			rec, err := mapRecord(q, row, meta, &fields)
			if err != nil {
				d.deliverError(err)
				return nil
			}
			return rec
		})
		mapped.Subscribe(addForwarder[any, binding.Record](rs, func(v any) (binding.Record, bool) {
			rec, ok := v.(binding.Record)
			return rec, ok && rec != nil
		}))
	}
	return rs
}

// mapRecord builds one record from the current row: resolve fields (cached in
// *fields), construct an empty record, and fill each field through its
// binding at 1-based column indexes.
func mapRecord(q ResultQuery, row rdbc.Row, meta rdbc.RowMetadata, fields *[]binding.Field) (rec binding.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("mapping row: %v", r)
		}
	}()

	resolved := *fields
	if resolved == nil {
		m := newMetaAdapter(meta)
		if q != nil {
			resolved = q.Fields(m)
		} else {
			resolved = binding.FieldsFromMetadata(m)
		}
		*fields = resolved
	}

	var out binding.Record
	if q != nil {
		out = q.NewRecord(resolved)
	} else {
		out = binding.NewRecord(resolved)
	}

	reader := &rowAdapter{row: row}
	for i := range resolved {
		ctx := &binding.GetContext{Row: reader, Index: i + 1}
		if err := resolved[i].Binding.Get(ctx); err != nil {
			return nil, fmt.Errorf("reading column %d (%s): %w", i+1, resolved[i].Name, err)
		}
		out.Set(i, ctx.Value())
	}
	return out, nil
}
