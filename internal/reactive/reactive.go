// Package reactive defines the demand-driven streams contract used across the
// bridge: a Publisher emits elements to a single Subscriber, paced by the
// Subscription the subscriber receives first.
package reactive

// Publisher is a provider of a potentially unbounded number of sequenced
// elements, publishing them according to the demand received from its
// Subscriber. Subscribe may be called multiple times; each call starts an
// independent subscription.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// Subscriber receives OnSubscribe exactly once, before any other signal.
// OnNext is delivered at most as many times as requested; OnError and
// OnComplete are terminal and mutually exclusive.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// Subscription is the one-to-one lifecycle handle between a Subscriber and a
// Publisher. Request(n) with n <= 0 is a protocol violation.
type Subscription interface {
	Request(n int64)
	Cancel()
}

// PublisherFunc adapts a subscribe function to a Publisher.
type PublisherFunc[T any] func(s Subscriber[T])

func (f PublisherFunc[T]) Subscribe(s Subscriber[T]) { f(s) }

// SubscriberFunc assembles a Subscriber from four optional callbacks. Nil
// callbacks are no-ops, which makes it the natural fire-and-forget consumer.
type SubscriberFunc[T any] struct {
	Subscribed func(s Subscription)
	Next       func(v T)
	Err        func(err error)
	Complete   func()
}

func (f *SubscriberFunc[T]) OnSubscribe(s Subscription) {
	if f.Subscribed != nil {
		f.Subscribed(s)
	}
}

func (f *SubscriberFunc[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f *SubscriberFunc[T]) OnError(err error) {
	if f.Err != nil {
		f.Err(err)
	}
}

func (f *SubscriberFunc[T]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}
