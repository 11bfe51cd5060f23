package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
)

type sqlStatement struct {
	conn    *sqlConnection
	sqlText string

	binds     []any
	batched   [][]any
	fetchSize int
	returning []string
}

func (s *sqlStatement) Bind(index int, value any) {
	s.grow(index)
	s.binds[index] = fromDriverValue(value)
}

func (s *sqlStatement) BindNull(index int, typeName string) {
	s.grow(index)
	s.binds[index] = nil
}

func (s *sqlStatement) grow(index int) {
	for len(s.binds) <= index {
		s.binds = append(s.binds, nil)
	}
}

func (s *sqlStatement) Add() rdbc.Statement {
	s.batched = append(s.batched, s.binds)
	s.binds = nil
	return s
}

func (s *sqlStatement) FetchSize(rows int) {
	s.fetchSize = rows
}

func (s *sqlStatement) ReturnGeneratedValues(names ...string) {
	s.returning = append(s.returning[:0], names...)
}

func (s *sqlStatement) Execute() reactive.Publisher[rdbc.Result] {
	return reactive.PublisherFunc[rdbc.Result](func(sub reactive.Subscriber[rdbc.Result]) {
		sub.OnSubscribe(newResultSubscription(s, sub))
	})
}

// fromDriverValue converts SPI values to what database/sql accepts: the
// temporal component types become time.Time again at this boundary.
func fromDriverValue(v any) any {
	switch t := v.(type) {
	case rdbc.LocalDate:
		return t.In(time.UTC)
	case rdbc.LocalTime:
		return t.On(rdbc.LocalDate{Year: 1, Month: time.January, Day: 1}, time.UTC)
	case rdbc.LocalDateTime:
		return t.In(time.UTC)
	default:
		return v
	}
}

// returnsRows classifies the statement: row-producing statements go through
// QueryContext, everything else through ExecContext.
func returnsRows(sqlText string) bool {
	head := strings.ToUpper(strings.TrimSpace(sqlText))
	for _, kw := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "VALUES", "TABLE"} {
		if strings.HasPrefix(head, kw) {
			return true
		}
	}
	return false
}

// resultSubscription emits one Result per logical execution: a single result
// for a plain statement, one per accumulated row set for a batched
// statement. Results are produced on first demand, off the caller.
type resultSubscription struct {
	stmt       *sqlStatement
	downstream reactive.Subscriber[rdbc.Result]
	started    chan struct{}
	cancelled  chan struct{}
}

func newResultSubscription(stmt *sqlStatement, downstream reactive.Subscriber[rdbc.Result]) *resultSubscription {
	return &resultSubscription{
		stmt:       stmt,
		downstream: downstream,
		started:    make(chan struct{}),
		cancelled:  make(chan struct{}),
	}
}

func (s *resultSubscription) Request(n int64) {
	if n <= 0 {
		s.downstream.OnError(fmt.Errorf("non-positive request: %d", n))
		return
	}
	select {
	case <-s.started:
		return
	default:
	}
	close(s.started)
	go s.run()
}

func (s *resultSubscription) Cancel() {
	select {
	case <-s.cancelled:
	default:
		close(s.cancelled)
	}
}

func (s *resultSubscription) alive() bool {
	select {
	case <-s.cancelled:
		return false
	default:
		return true
	}
}

func (s *resultSubscription) run() {
	stmt := s.stmt
	ctx := context.Background()

	rows := stmt.batched
	if len(rows) == 0 {
		rows = [][]any{stmt.binds}
	}

	for _, args := range rows {
		if !s.alive() {
			return
		}
		if err := s.executeOne(ctx, args); err != nil {
			s.downstream.OnError(err)
			return
		}
	}

	if s.alive() {
		s.downstream.OnComplete()
	}
}

func (s *resultSubscription) executeOne(ctx context.Context, args []any) error {
	stmt := s.stmt
	c := stmt.conn.conn

	if returnsRows(stmt.sqlText) {
		rows, err := c.QueryContext(ctx, stmt.sqlText, args...)
		if err != nil {
			return fmt.Errorf("executing query: %w", err)
		}
		s.downstream.OnNext(&sqlResult{rows: rows, fetchSize: stmt.fetchSize})
		return nil
	}

	res, err := c.ExecContext(ctx, stmt.sqlText, args...)
	if err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading row count: %w", err)
	}
	s.downstream.OnNext(&sqlResult{count: count, counted: true})
	return nil
}

type sqlBatch struct {
	conn *sqlConnection
	sqls []string
}

func (b *sqlBatch) Add(sqlText string) rdbc.Batch {
	b.sqls = append(b.sqls, sqlText)
	return b
}

func (b *sqlBatch) Execute() reactive.Publisher[rdbc.Result] {
	return reactive.PublisherFunc[rdbc.Result](func(sub reactive.Subscriber[rdbc.Result]) {
		sub.OnSubscribe(b.subscription(sub))
	})
}

func (b *sqlBatch) subscription(sub reactive.Subscriber[rdbc.Result]) *batchSubscription {
	return &batchSubscription{
		batch:      b,
		downstream: sub,
		started:    make(chan struct{}),
		cancelled:  make(chan struct{}),
	}
}

type batchSubscription struct {
	batch      *sqlBatch
	downstream reactive.Subscriber[rdbc.Result]
	started    chan struct{}
	cancelled  chan struct{}
}

func (s *batchSubscription) Request(n int64) {
	if n <= 0 {
		s.downstream.OnError(fmt.Errorf("non-positive request: %d", n))
		return
	}
	select {
	case <-s.started:
		return
	default:
	}
	close(s.started)
	go s.run()
}

func (s *batchSubscription) Cancel() {
	select {
	case <-s.cancelled:
	default:
		close(s.cancelled)
	}
}

func (s *batchSubscription) run() {
	ctx := context.Background()
	c := s.batch.conn.conn

	for _, sqlText := range s.batch.sqls {
		select {
		case <-s.cancelled:
			return
		default:
		}

		res, err := c.ExecContext(ctx, sqlText)
		if err != nil {
			s.downstream.OnError(fmt.Errorf("executing batch statement: %w", err))
			return
		}
		count, err := res.RowsAffected()
		if err != nil {
			s.downstream.OnError(fmt.Errorf("reading batch row count: %w", err))
			return
		}
		s.downstream.OnNext(&sqlResult{count: count, counted: true})
	}
	s.downstream.OnComplete()
}
