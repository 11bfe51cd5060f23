package bridge

import (
	"errors"
	"fmt"

	"rxsql/internal/binding"
	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
	"rxsql/internal/render"
)

var (
	ErrEmptyBatch        = errors.New("batch contains no queries")
	ErrRaggedBindValues  = errors.New("batch bind value rows have differing lengths")
	ErrBindValueArity    = errors.New("batch bind value row does not match the parameter count")
)

// MultiBatch executes several complete queries in one driver batch. Each
// query is rendered with inlined parameters; there is no bind phase.
type MultiBatch struct {
	Queries []render.Query
}

// SingleBatch executes one prepared query once per bind value row.
// ExpectedParams, when set, validates every row's width.
type SingleBatch struct {
	Query          render.Query
	Rows           [][]any
	ExpectedParams int
}

// CheckBindValues validates the bind value rows before the query is rendered.
func (b *SingleBatch) CheckBindValues() error {
	if len(b.Rows) == 0 {
		return ErrEmptyBatch
	}
	width := len(b.Rows[0])
	for _, row := range b.Rows {
		if len(row) != width {
			return ErrRaggedBindValues
		}
		if b.ExpectedParams > 0 && len(row) != b.ExpectedParams {
			return fmt.Errorf("%w: got %d, want %d", ErrBindValueArity, len(row), b.ExpectedParams)
		}
	}
	return nil
}

// BatchPublisher publishes the update counts of a multi-statement batch.
type BatchPublisher struct {
	cfg   *Configuration
	batch *MultiBatch
}

func NewBatchPublisher(cfg *Configuration, batch *MultiBatch) *BatchPublisher {
	return &BatchPublisher{cfg: cfg, batch: batch}
}

func (p *BatchPublisher) Subscribe(sub reactive.Subscriber[int64]) {
	s := newNonBlockingSubscription[int64](p.cfg, sub)
	s.connSub = newMultiBatchSubscriber(s, p.batch)
	sub.OnSubscribe(s)
}

func newMultiBatchSubscriber(s *nonBlockingSubscription[int64], batch *MultiBatch) *connectionSubscriber[int64] {
	cs := &connectionSubscriber[int64]{downstream: s}
	cs.exec = func(c rdbc.Connection) {
		defer recoverToError(s)

		if len(batch.Queries) == 0 {
			s.deliverError(ErrEmptyBatch)
			return
		}

		b := c.CreateBatch()
		for _, q := range batch.Queries {
			sql, err := s.cfg.Renderer.RenderInlined(q)
			if err != nil {
				s.deliverError(fmt.Errorf("rendering batch query: %w", err))
				return
			}
			b = b.Add(sql)
		}

		b.Execute().Subscribe(newRowCountResultSubscriber(s))
	}
	return cs
}

// SingleBatchPublisher publishes the update counts of a single-statement
// batch.
type SingleBatchPublisher struct {
	cfg   *Configuration
	batch *SingleBatch
}

func NewSingleBatchPublisher(cfg *Configuration, batch *SingleBatch) *SingleBatchPublisher {
	return &SingleBatchPublisher{cfg: cfg, batch: batch}
}

func (p *SingleBatchPublisher) Subscribe(sub reactive.Subscriber[int64]) {
	s := newNonBlockingSubscription[int64](p.cfg, sub)
	s.connSub = newSingleBatchSubscriber(s, p.batch)
	sub.OnSubscribe(s)
}

func newSingleBatchSubscriber(s *nonBlockingSubscription[int64], batch *SingleBatch) *connectionSubscriber[int64] {
	cs := &connectionSubscriber[int64]{downstream: s}
	cs.exec = func(c rdbc.Connection) {
		defer recoverToError(s)

		if err := batch.CheckBindValues(); err != nil {
			s.deliverError(err)
			return
		}

		rendered, err := s.cfg.Renderer.Render(batch.Query)
		if err != nil {
			s.deliverError(fmt.Errorf("rendering batch query: %w", err))
			return
		}

		stmt := c.CreateStatement(rendered.SQL)
		for _, row := range batch.Rows {
			// Bind through the collected params to preserve type information
			// when the query declared any; infer from the raw values
			// otherwise.
			if err := bindBatchRow(stmt, s.cfg.Dialect, rendered.BindValues, row); err != nil {
				s.deliverError(err)
				return
			}
			stmt = stmt.Add()
		}

		stmt.Execute().Subscribe(newRowCountResultSubscriber(s))
	}
	return cs
}

func bindBatchRow(stmt rdbc.Statement, d render.Dialect, params []render.Param, row []any) error {
	binder := newParamAdapter(stmt, d)
	for i, v := range row {
		var b binding.Binding
		var typeName string
		if i < len(params) {
			b = params[i].Binding
			typeName = params[i].TypeName
		}
		if b == nil {
			b = binding.ScalarBinding{TypeName: typeName}
		}
		ctx := &binding.SetContext{Binder: binder, Index: i + 1, Value: v, TypeName: typeName}
		if err := b.Set(ctx); err != nil {
			return fmt.Errorf("binding batch parameter %d: %w", i+1, err)
		}
	}
	return nil
}
