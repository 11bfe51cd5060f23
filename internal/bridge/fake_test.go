package bridge

import (
	"sync/atomic"

	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
)

// The fakes emit synchronously on the requester's stack, which is the
// hardest case for the re-entrancy guard and signal ordering.

// syncPublisher emits a fixed item list honoring demand, re-entrancy safe.
type syncPublisher[T any] struct {
	items []T
	err   error // delivered after the items when set
}

func (p *syncPublisher[T]) Subscribe(s reactive.Subscriber[T]) {
	s.OnSubscribe(&syncSubscription[T]{pub: p, downstream: s})
}

type syncSubscription[T any] struct {
	pub        *syncPublisher[T]
	downstream reactive.Subscriber[T]
	idx        int
	demand     int64
	emitting   bool
	done       bool
}

func (s *syncSubscription[T]) Request(n int64) {
	s.demand += n
	if s.demand < 0 {
		s.demand = int64(^uint64(0) >> 1)
	}
	if s.emitting || s.done {
		return
	}
	s.emitting = true
	for s.demand > 0 && s.idx < len(s.pub.items) && !s.done {
		s.demand--
		v := s.pub.items[s.idx]
		s.idx++
		s.downstream.OnNext(v)
	}
	s.emitting = false
	if s.idx == len(s.pub.items) && !s.done {
		s.done = true
		if s.pub.err != nil {
			s.downstream.OnError(s.pub.err)
		} else {
			s.downstream.OnComplete()
		}
	}
}

func (s *syncSubscription[T]) Cancel() {
	s.done = true
}

type fakeFactory struct {
	conn     *fakeConnection
	failWith error
	created  atomic.Int32
}

func (f *fakeFactory) Create() reactive.Publisher[rdbc.Connection] {
	return reactive.PublisherFunc[rdbc.Connection](func(s reactive.Subscriber[rdbc.Connection]) {
		s.OnSubscribe(&fakeConnectSubscription{factory: f, downstream: s})
	})
}

type fakeConnectSubscription struct {
	factory    *fakeFactory
	downstream reactive.Subscriber[rdbc.Connection]
	emitted    bool
}

func (s *fakeConnectSubscription) Request(n int64) {
	if s.emitted {
		return
	}
	s.emitted = true
	if s.factory.failWith != nil {
		s.downstream.OnError(s.factory.failWith)
		return
	}
	s.factory.created.Add(1)
	s.downstream.OnNext(s.factory.conn)
	s.downstream.OnComplete()
}

func (s *fakeConnectSubscription) Cancel() {}

type fakeConnection struct {
	stmt            *fakeStatement
	batch           *fakeBatch
	closeSubscribed atomic.Int32
}

func (c *fakeConnection) CreateStatement(sql string) rdbc.Statement {
	c.stmt.sql = sql
	return c.stmt
}

func (c *fakeConnection) CreateBatch() rdbc.Batch {
	return c.batch
}

func (c *fakeConnection) Close() reactive.Publisher[rdbc.Void] {
	return reactive.PublisherFunc[rdbc.Void](func(s reactive.Subscriber[rdbc.Void]) {
		c.closeSubscribed.Add(1)
		s.OnSubscribe(&syncSubscription[rdbc.Void]{pub: &syncPublisher[rdbc.Void]{}, downstream: s})
	})
}

type boundValue struct {
	value    any
	typeName string
	null     bool
}

type fakeStatement struct {
	sql       string
	binds     map[int]boundValue
	addCalls  int
	fetchSize int
	returning []string
	results   []rdbc.Result
	execErr   error
}

func newFakeStatement(results ...rdbc.Result) *fakeStatement {
	return &fakeStatement{binds: map[int]boundValue{}, results: results}
}

func (s *fakeStatement) Bind(index int, value any) {
	s.binds[index] = boundValue{value: value}
}

func (s *fakeStatement) BindNull(index int, typeName string) {
	s.binds[index] = boundValue{typeName: typeName, null: true}
}

func (s *fakeStatement) Add() rdbc.Statement {
	s.addCalls++
	return s
}

func (s *fakeStatement) FetchSize(rows int) {
	s.fetchSize = rows
}

func (s *fakeStatement) ReturnGeneratedValues(names ...string) {
	s.returning = names
}

func (s *fakeStatement) Execute() reactive.Publisher[rdbc.Result] {
	return &syncPublisher[rdbc.Result]{items: s.results, err: s.execErr}
}

type fakeBatch struct {
	sqls    []string
	results []rdbc.Result
}

func (b *fakeBatch) Add(sql string) rdbc.Batch {
	b.sqls = append(b.sqls, sql)
	return b
}

func (b *fakeBatch) Execute() reactive.Publisher[rdbc.Result] {
	return &syncPublisher[rdbc.Result]{items: b.results}
}

// fakeResult is either a counted result or a row set over fakeMeta.
type fakeResult struct {
	counted bool
	count   int64
	rows    [][]any
	meta    *fakeMeta
	mapErr  error // panic value raised inside the mapper for one row
}

func (r *fakeResult) RowsUpdated() reactive.Publisher[int64] {
	if !r.counted {
		return &syncPublisher[int64]{}
	}
	return &syncPublisher[int64]{items: []int64{r.count}}
}

func (r *fakeResult) Map(f func(row rdbc.Row, meta rdbc.RowMetadata) any) reactive.Publisher[any] {
	meta := r.meta
	if meta == nil {
		meta = &fakeMeta{}
	}
	mapped := make([]any, 0, len(r.rows))
	for _, values := range r.rows {
		mapped = append(mapped, f(&fakeRow{values: values}, meta))
	}
	return &syncPublisher[any]{items: mapped}
}

type fakeRow struct {
	values []any
}

func (r *fakeRow) Get(index int) any {
	if index < 0 || index >= len(r.values) {
		return nil
	}
	return r.values[index]
}

type fakeCol struct {
	name        string
	typeName    string
	precision   int
	scale       int
	hasSize     bool
	nullability rdbc.Nullability
}

func (c *fakeCol) Name() string                  { return c.name }
func (c *fakeCol) TypeName() string              { return c.typeName }
func (c *fakeCol) Precision() (int, bool)        { return c.precision, c.hasSize }
func (c *fakeCol) Scale() (int, bool)            { return c.scale, c.hasSize }
func (c *fakeCol) Nullability() rdbc.Nullability { return c.nullability }

type fakeMeta struct {
	cols []*fakeCol
}

func (m *fakeMeta) ColumnCount() int { return len(m.cols) }

func (m *fakeMeta) Column(index int) rdbc.ColumnMetadata { return m.cols[index] }

// testSubscriber records every downstream signal; hooks fire synchronously
// from within the signal.
type testSubscriber[T any] struct {
	sub       reactive.Subscription
	next      []T
	errs      []error
	completes int

	requestOnSubscribe int64
	afterNext          func(s *testSubscriber[T], n int)
}

func (s *testSubscriber[T]) OnSubscribe(sub reactive.Subscription) {
	s.sub = sub
	if s.requestOnSubscribe != 0 {
		sub.Request(s.requestOnSubscribe)
	}
}

func (s *testSubscriber[T]) OnNext(v T) {
	s.next = append(s.next, v)
	if s.afterNext != nil {
		s.afterNext(s, len(s.next))
	}
}

func (s *testSubscriber[T]) OnError(err error) {
	s.errs = append(s.errs, err)
}

func (s *testSubscriber[T]) OnComplete() {
	s.completes++
}

func rowsOf(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i + 1), "name"}
	}
	return rows
}

func twoColMeta() *fakeMeta {
	return &fakeMeta{cols: []*fakeCol{
		{name: "id", typeName: "BIGINT", nullability: rdbc.NonNull},
		{name: "name", typeName: "VARCHAR", nullability: rdbc.Nullable},
	}}
}
