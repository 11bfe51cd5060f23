package bridge

import (
	"sync/atomic"

	"rxsql/internal/reactive"
)

// forwarder relays one driver result's element stream into the owning
// subscription's downstream. It paces the upstream one element at a time:
// a new Request(1) is issued only after the previous element was delivered,
// bounding in-flight elements to the number of live forwarders.
//
// U is the upstream element type; cast converts (and filters) to the
// downstream type. A false return drops the element and pulls a replacement.
type forwarder[U, T any] struct {
	index     int64
	resultSub *resultSubscriber[T]
	upstream  atomic.Pointer[reactive.Subscription]
	cast      func(U) (T, bool)
}

// addForwarder registers a new forwarder in the subscription's table before
// it is handed to the driver publisher.
func addForwarder[U, T any](rs *resultSubscriber[T], cast func(U) (T, bool)) *forwarder[U, T] {
	i := rs.downstream.nextForwarderIndex.Add(1) - 1
	f := &forwarder[U, T]{index: i, resultSub: rs, cast: cast}
	rs.downstream.forwarders.Store(i, forwarderRef(f))
	return f
}

func (f *forwarder[U, T]) upstreamSubscription() reactive.Subscription {
	if us := f.upstream.Load(); us != nil {
		return *us
	}
	return nil
}

func (f *forwarder[U, T]) OnSubscribe(s reactive.Subscription) {
	f.upstream.Store(&s)
	f.resultSub.downstream.request1(s)
}

func (f *forwarder[U, T]) OnNext(v U) {
	d := f.resultSub.downstream
	if d.completed.Load() {
		return
	}

	item, ok := f.cast(v)
	if !ok {
		// Suppressed element (a failed row mapping); its demand slot was
		// already consumed, so pull the replacement unconditionally.
		if us := f.upstreamSubscription(); us != nil {
			us.Request(1)
		}
		return
	}

	d.downstream.OnNext(item)
	if us := f.upstreamSubscription(); us != nil {
		d.request1(us)
	}
}

func (f *forwarder[U, T]) OnError(err error) {
	f.resultSub.downstream.deliverError(err)
}

func (f *forwarder[U, T]) OnComplete() {
	f.resultSub.downstream.forwarders.Delete(f.index)
	f.resultSub.tryComplete()
}
