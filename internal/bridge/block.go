package bridge

import (
	"context"

	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
)

// Block subscribes to a publisher with a demand of one and waits for the
// first element. Completion without a value yields the zero value;
// cancellation of ctx surfaces as a data-access error.
func Block[T any](ctx context.Context, p reactive.Publisher[T]) (T, error) {
	type outcome struct {
		value T
		err   error
		done  bool
	}

	ch := make(chan outcome, 1)
	deliver := func(o outcome) {
		select {
		case ch <- o:
		default:
		}
	}

	p.Subscribe(&reactive.SubscriberFunc[T]{
		Subscribed: func(s reactive.Subscription) { s.Request(1) },
		Next:       func(v T) { deliver(outcome{value: v}) },
		Err:        func(err error) { deliver(outcome{err: err}) },
		Complete:   func() { deliver(outcome{done: true}) },
	})

	var zero T
	select {
	case o := <-ch:
		if o.err != nil {
			return zero, &DataAccessError{Op: "blocking on publisher", Err: o.err}
		}
		if o.done {
			return zero, nil
		}
		return o.value, nil
	case <-ctx.Done():
		return zero, &DataAccessError{Op: "blocking on publisher", Err: ctx.Err()}
	}
}

// GetConnection resolves a driver by URL and blocks for its single
// connection. A completed connection stream without a value is an error.
func GetConnection(ctx context.Context, url string) (rdbc.Connection, error) {
	return getConnection(ctx, url, rdbc.Options{})
}

// GetConnectionWith is GetConnection with credentials supplied separately
// from the URL.
func GetConnectionWith(ctx context.Context, url, user, password string) (rdbc.Connection, error) {
	return getConnection(ctx, url, rdbc.Options{User: user, Password: password})
}

func getConnection(ctx context.Context, url string, opts rdbc.Options) (rdbc.Connection, error) {
	factory, err := rdbc.Factory(url, opts)
	if err != nil {
		return nil, &DataAccessError{Op: "resolving connection factory", Err: err}
	}

	conn, err := Block(ctx, factory.Create())
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, &DataAccessError{Op: "connection factory completed without a connection"}
	}
	return conn, nil
}
