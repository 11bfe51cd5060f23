package bridge

import (
	"fmt"
	"sync/atomic"

	"rxsql/internal/binding"
	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
	"rxsql/internal/render"
)

// connectionSubscriber consumes the single connection emitted by the factory
// and hands it to the exec step. Completion of the connection stream is
// ignored: the subscription terminates on result-stream completion only.
type connectionSubscriber[T any] struct {
	downstream *nonBlockingSubscription[T]
	conn       atomic.Pointer[rdbc.Connection]
	exec       func(c rdbc.Connection)
}

func (cs *connectionSubscriber[T]) OnSubscribe(s reactive.Subscription) {
	s.Request(1)
}

func (cs *connectionSubscriber[T]) OnNext(c rdbc.Connection) {
	cs.conn.Store(&c)
	cs.exec(c)
}

func (cs *connectionSubscriber[T]) OnError(err error) {
	cs.downstream.deliverError(err)
}

func (cs *connectionSubscriber[T]) OnComplete() {}

// newQueryExecutionSubscriber renders, binds, configures and executes one
// query on the received connection, then subscribes the result subscriber
// produced by newResultSub. Any synchronous failure on the way is routed to
// the subscription's error channel.
func newQueryExecutionSubscriber[T any](
	s *nonBlockingSubscription[T],
	query render.Query,
	newResultSub func() reactive.Subscriber[rdbc.Result],
) *connectionSubscriber[T] {
	cs := &connectionSubscriber[T]{downstream: s}
	cs.exec = func(c rdbc.Connection) {
		defer recoverToError(s)

		rendered, err := s.cfg.Renderer.Render(query)
		if err != nil {
			s.deliverError(fmt.Errorf("rendering query: %w", err))
			return
		}

		stmt := c.CreateStatement(rendered.SQL)
		if err := bindValues(stmt, s.cfg.Dialect, rendered.BindValues); err != nil {
			s.deliverError(err)
			return
		}

		if rq, ok := query.(ResultQuery); ok {
			if f := rq.FetchSize(); f != 0 {
				s.cfg.logger().Debug("applying fetch size", "rows", f)
				stmt.FetchSize(f)
			}
		}

		if dq, ok := query.(DMLQuery); ok {
			if names := dq.ReturningNames(); len(names) > 0 && !dq.NativeReturningSupport(s.cfg.Dialect) {
				stmt.ReturnGeneratedValues(names...)
			}
		}

		stmt.Execute().Subscribe(newResultSub())
	}
	return cs
}

// bindValues walks the rendered bind values through the parameter adapter,
// using each param's own binding when the renderer preserved one.
func bindValues(stmt rdbc.Statement, d render.Dialect, params []render.Param) error {
	binder := newParamAdapter(stmt, d)
	for i, p := range params {
		b := p.Binding
		if b == nil {
			b = binding.ScalarBinding{TypeName: p.TypeName}
		}
		ctx := &binding.SetContext{Binder: binder, Index: i + 1, Value: p.Value, TypeName: p.TypeName}
		if err := b.Set(ctx); err != nil {
			return fmt.Errorf("binding parameter %d: %w", i+1, err)
		}
	}
	return nil
}

func recoverToError[T any](s *nonBlockingSubscription[T]) {
	if r := recover(); r != nil {
		s.deliverError(fmt.Errorf("statement execution: %v", r))
	}
}
