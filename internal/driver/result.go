package driver

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
)

// sqlResult is one logical execution outcome: either an update count or a
// row set. Asking a row set for its update count completes empty, and vice
// versa, matching the driver protocol.
type sqlResult struct {
	rows      *sql.Rows
	count     int64
	counted   bool
	fetchSize int
}

func (r *sqlResult) RowsUpdated() reactive.Publisher[int64] {
	return reactive.PublisherFunc[int64](func(sub reactive.Subscriber[int64]) {
		if !r.counted {
			sub.OnSubscribe(noopSubscription{})
			sub.OnComplete()
			return
		}
		sub.OnSubscribe(&countSubscription{count: r.count, downstream: sub})
	})
}

func (r *sqlResult) Map(f func(row rdbc.Row, meta rdbc.RowMetadata) any) reactive.Publisher[any] {
	return reactive.PublisherFunc[any](func(sub reactive.Subscriber[any]) {
		if r.rows == nil {
			sub.OnSubscribe(noopSubscription{})
			sub.OnComplete()
			return
		}
		rs := newRowSubscription(r.rows, f, sub)
		sub.OnSubscribe(rs)
		go rs.pump()
	})
}

type noopSubscription struct{}

func (noopSubscription) Request(int64) {}
func (noopSubscription) Cancel()       {}

type countSubscription struct {
	count      int64
	downstream reactive.Subscriber[int64]
	emitted    atomic.Bool
}

func (s *countSubscription) Request(n int64) {
	if n <= 0 {
		s.downstream.OnError(fmt.Errorf("non-positive request: %d", n))
		return
	}
	if !s.emitted.Swap(true) {
		s.downstream.OnNext(s.count)
		s.downstream.OnComplete()
	}
}

func (s *countSubscription) Cancel() {
	s.emitted.Store(true)
}

// rowSubscription pumps sql.Rows into mapped elements on its own goroutine,
// honoring cumulative demand. Signals therefore never arrive on the
// requester's stack.
type rowSubscription struct {
	rows       *sql.Rows
	mapper     func(row rdbc.Row, meta rdbc.RowMetadata) any
	downstream reactive.Subscriber[any]

	demand atomic.Int64
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newRowSubscription(rows *sql.Rows, mapper func(rdbc.Row, rdbc.RowMetadata) any, downstream reactive.Subscriber[any]) *rowSubscription {
	return &rowSubscription{
		rows:       rows,
		mapper:     mapper,
		downstream: downstream,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (s *rowSubscription) Request(n int64) {
	if n <= 0 {
		s.downstream.OnError(fmt.Errorf("non-positive request: %d", n))
		return
	}
	for {
		cur := s.demand.Load()
		next := cur + n
		if next < 0 {
			next = math.MaxInt64
		}
		if s.demand.CompareAndSwap(cur, next) {
			break
		}
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *rowSubscription) Cancel() {
	s.once.Do(func() { close(s.done) })
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *rowSubscription) pump() {
	defer s.rows.Close()

	meta, err := newSQLRowMetadata(s.rows)
	if err != nil {
		s.downstream.OnError(err)
		return
	}

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if s.demand.Load() <= 0 {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		if !s.rows.Next() {
			if err := s.rows.Err(); err != nil {
				s.downstream.OnError(fmt.Errorf("iterating rows: %w", err))
				return
			}
			s.downstream.OnComplete()
			return
		}

		row, err := scanRow(s.rows, meta)
		if err != nil {
			s.downstream.OnError(err)
			return
		}

		if cur := s.demand.Load(); cur != math.MaxInt64 {
			s.demand.Add(-1)
		}

		if v := s.mapper(row, meta); v != nil {
			s.downstream.OnNext(v)
		} else {
			// Suppressed row; give the slot back so the stream keeps moving.
			s.demand.Add(1)
		}
	}
}

// sqlRow holds the scanned, SPI-converted values of one row.
type sqlRow struct {
	values []any
}

func (r *sqlRow) Get(index int) any {
	if index < 0 || index >= len(r.values) {
		return nil
	}
	return r.values[index]
}

func scanRow(rows *sql.Rows, meta *sqlRowMetadata) (*sqlRow, error) {
	n := meta.ColumnCount()
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	for i, v := range values {
		values[i] = toDriverValue(v, meta.columns[i].typeName)
	}
	return &sqlRow{values: values}, nil
}

// toDriverValue converts database/sql values to the SPI exchange types:
// temporal values cross as local date/time components.
func toDriverValue(v any, typeName string) any {
	switch t := v.(type) {
	case time.Time:
		switch typeName {
		case "DATE":
			return rdbc.DateOf(t)
		case "TIME":
			return rdbc.TimeOf(t)
		default:
			return rdbc.DateTimeOf(t)
		}
	case []byte:
		// Drivers hand back []byte for text columns when no type is
		// negotiated; keep bytes, the binding layer converts.
		return t
	default:
		return v
	}
}

type sqlColumnMetadata struct {
	name      string
	typeName  string
	precision int
	scale     int
	hasSize   bool
	nullable  rdbc.Nullability
}

func (c *sqlColumnMetadata) Name() string     { return c.name }
func (c *sqlColumnMetadata) TypeName() string { return c.typeName }

func (c *sqlColumnMetadata) Precision() (int, bool) {
	return c.precision, c.hasSize
}

func (c *sqlColumnMetadata) Scale() (int, bool) {
	return c.scale, c.hasSize
}

func (c *sqlColumnMetadata) Nullability() rdbc.Nullability {
	return c.nullable
}

type sqlRowMetadata struct {
	columns []*sqlColumnMetadata
}

func newSQLRowMetadata(rows *sql.Rows) (*sqlRowMetadata, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	columns := make([]*sqlColumnMetadata, len(types))
	for i, ct := range types {
		col := &sqlColumnMetadata{
			name:     ct.Name(),
			typeName: ct.DatabaseTypeName(),
			nullable: rdbc.NullabilityUnknown,
		}
		if p, s, ok := ct.DecimalSize(); ok {
			col.precision, col.scale, col.hasSize = int(p), int(s), true
		}
		if nullable, ok := ct.Nullable(); ok {
			if nullable {
				col.nullable = rdbc.Nullable
			} else {
				col.nullable = rdbc.NonNull
			}
		}
		columns[i] = col
	}
	return &sqlRowMetadata{columns: columns}, nil
}

func (m *sqlRowMetadata) ColumnCount() int {
	return len(m.columns)
}

func (m *sqlRowMetadata) Column(index int) rdbc.ColumnMetadata {
	return m.columns[index]
}
