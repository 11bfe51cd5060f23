package bridge

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"rxsql/internal/binding"
	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
	"rxsql/internal/render"
)

// Configuration wires a subscription to its collaborators: the driver's
// connection factory, the SQL renderer, and the dialect knobs.
type Configuration struct {
	Factory  rdbc.ConnectionFactory
	Renderer render.Renderer
	Dialect  render.Dialect
	Logger   *slog.Logger

	// Executor and ForceBlocking select the legacy blocking execution path.
	// The blocking subscriptions share no state with the non-blocking core.
	Executor      BlockingExecutor
	ForceBlocking bool
}

func (c *Configuration) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// ResultQuery is a query that produces records. Fields resolves the field
// list against the result metadata; NewRecord produces an empty record for
// that list.
type ResultQuery interface {
	Fields(meta binding.ResultMetadata) []binding.Field
	NewRecord(fields []binding.Field) binding.Record
	FetchSize() int
}

// DMLQuery is a data-modifying query that may declare returning fields.
type DMLQuery interface {
	ReturningNames() []string
	NativeReturningSupport(d render.Dialect) bool
}

// forwarderRef is how the demand pump reaches a forwarder's upstream without
// knowing its element types.
type forwarderRef interface {
	upstreamSubscription() reactive.Subscription
}

// nonBlockingSubscription drives one query or batch execution: it owns the
// connection slot, the forwarder table, and the terminal transition.
type nonBlockingSubscription[T any] struct {
	subscription[T]

	cfg        *Configuration
	subscribed atomic.Bool
	connSub    *connectionSubscriber[T]

	forwarders         sync.Map // int64 -> forwarderRef
	nextForwarderIndex atomic.Int64
}

func newNonBlockingSubscription[T any](cfg *Configuration, downstream reactive.Subscriber[T]) *nonBlockingSubscription[T] {
	s := &nonBlockingSubscription[T]{cfg: cfg}
	s.downstream = downstream
	s.pump = s.pump0
	s.terminate = s.terminate0
	return s
}

// pump0 starts the execution lazily on first demand, then feeds available
// demand to every live forwarder, one element at a time.
func (s *nonBlockingSubscription[T]) pump0() {
	if !s.subscribed.Swap(true) {
		s.cfg.Factory.Create().Subscribe(s.connSub)
	}

	// Forwarders all feed the same downstream; normally at most one is live
	// at a time.
	s.forwarders.Range(func(_, v any) bool {
		if us := v.(forwarderRef).upstreamSubscription(); us != nil {
			s.request1(us)
		}
		return true
	})
}

// request1 pulls one element from an upstream if downstream demand allows it.
func (s *nonBlockingSubscription[T]) request1(us reactive.Subscription) {
	if s.moreRequested() {
		us.Request(1)
	}
}

func (s *nonBlockingSubscription[T]) terminate0(cancelled bool) {
	s.closeConnection()
	if !cancelled {
		s.downstream.OnComplete()
	}
}

// deliverError is the single error channel: the first error wins, closes the
// connection and reaches the downstream; later signals are absorbed.
func (s *nonBlockingSubscription[T]) deliverError(err error) {
	if s.completed.CompareAndSwap(false, true) {
		s.closeConnection()
		s.downstream.OnError(err)
	}
}

// closeConnection swaps the connection slot to nil and subscribes to the old
// connection's close publisher fire-and-forget. The swap makes the close
// side effect exactly-once.
func (s *nonBlockingSubscription[T]) closeConnection() {
	if c := s.connSub.conn.Swap(nil); c != nil && *c != nil {
		(*c).Close().Subscribe(&reactive.SubscriberFunc[rdbc.Void]{
			Subscribed: func(cs reactive.Subscription) { cs.Request(math.MaxInt64) },
		})
	}
}

func (s *nonBlockingSubscription[T]) forwardersEmpty() bool {
	empty := true
	s.forwarders.Range(func(_, _ any) bool {
		empty = false
		return false
	})
	return empty
}

// RecordPublisher publishes the records of one result query. Every Subscribe
// starts an independent execution.
type RecordPublisher struct {
	cfg   *Configuration
	query render.Query
}

func NewRecordPublisher(cfg *Configuration, query render.Query) *RecordPublisher {
	return &RecordPublisher{cfg: cfg, query: query}
}

func (p *RecordPublisher) Subscribe(sub reactive.Subscriber[binding.Record]) {
	if p.cfg.ForceBlocking {
		sub.OnSubscribe(newBlockingRecordSubscription(p.cfg, p.query, sub))
		return
	}

	s := newNonBlockingSubscription[binding.Record](p.cfg, sub)
	rq, _ := p.query.(ResultQuery)
	s.connSub = newQueryExecutionSubscriber(s, p.query, func() reactive.Subscriber[rdbc.Result] {
		return newRecordResultSubscriber(rq, s)
	})
	sub.OnSubscribe(s)
}

// RowCountPublisher publishes the update counts of one DML query.
type RowCountPublisher struct {
	cfg   *Configuration
	query render.Query
}

func NewRowCountPublisher(cfg *Configuration, query render.Query) *RowCountPublisher {
	return &RowCountPublisher{cfg: cfg, query: query}
}

func (p *RowCountPublisher) Subscribe(sub reactive.Subscriber[int64]) {
	if p.cfg.ForceBlocking {
		sub.OnSubscribe(newBlockingRowCountSubscription(p.cfg, p.query, sub))
		return
	}

	s := newNonBlockingSubscription[int64](p.cfg, sub)
	s.connSub = newQueryExecutionSubscriber(s, p.query, func() reactive.Subscriber[rdbc.Result] {
		return newRowCountResultSubscriber(s)
	})
	sub.OnSubscribe(s)
}
