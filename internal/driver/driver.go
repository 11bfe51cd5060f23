// Package driver implements the reactive SPI on top of database/sql. MySQL
// and Postgres factories register under their URL schemes; statement
// execution pumps sql.Rows through a demand-paced row publisher on a
// goroutine, so no signal blocks the caller.
package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"

	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
)

// Config tunes a factory.
type Config struct {
	// MaxConcurrency restricts the number of concurrently open bridge
	// connections per factory.
	MaxConcurrency int64
	// ConnectTimeout bounds the initial connection acquisition.
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

func (c Config) normalized() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 3
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func init() {
	// The probe values carry native type descriptors, so the process-wide
	// capability flag stays up.
	rdbc.Register("mysql", newMySQLFactory, &sqlColumnMetadata{})
	rdbc.Register("postgres", newPostgresFactory, &sqlColumnMetadata{})
}

func newMySQLFactory(url string, opts rdbc.Options) (rdbc.ConnectionFactory, error) {
	dsn := strings.TrimPrefix(url, "mysql://")
	if opts.User != "" {
		dsn = opts.User + ":" + opts.Password + "@" + dsn
	}
	return NewFactory("mysql", dsn, Config{}), nil
}

func newPostgresFactory(url string, opts rdbc.Options) (rdbc.ConnectionFactory, error) {
	// lib/pq accepts postgres:// URLs natively.
	if opts.User != "" {
		rest := strings.TrimPrefix(url, "postgres://")
		url = "postgres://" + opts.User + ":" + opts.Password + "@" + rest
	}
	return NewFactory("postgres", url, Config{}), nil
}

// FromURL builds a tuned factory for a bridge connection URL, bypassing the
// registry defaults.
func FromURL(url string, opts rdbc.Options, cfg Config) (*Factory, error) {
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		return nil, fmt.Errorf("malformed connection url %q: missing scheme", url)
	}

	switch scheme {
	case "mysql":
		dsn := strings.TrimPrefix(url, "mysql://")
		if opts.User != "" {
			dsn = opts.User + ":" + opts.Password + "@" + dsn
		}
		return NewFactory("mysql", dsn, cfg), nil
	case "postgres":
		if opts.User != "" {
			rest := strings.TrimPrefix(url, "postgres://")
			url = "postgres://" + opts.User + ":" + opts.Password + "@" + rest
		}
		return NewFactory("postgres", url, cfg), nil
	default:
		return nil, fmt.Errorf("no driver registered for scheme %q", scheme)
	}
}

// Factory opens one database/sql pool lazily and emits dedicated connections
// from it.
type Factory struct {
	driverName string
	dsn        string
	cfg        Config

	mu  sync.Mutex
	db  *sql.DB
	sem *semaphore.Weighted
}

func NewFactory(driverName, dsn string, cfg Config) *Factory {
	cfg = cfg.normalized()
	return &Factory{
		driverName: driverName,
		dsn:        dsn,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrency),
	}
}

func (f *Factory) pool() (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		db, err := sql.Open(f.driverName, f.dsn)
		if err != nil {
			return nil, fmt.Errorf("opening %s pool: %w", f.driverName, err)
		}
		f.db = db
	}
	return f.db, nil
}

// Create returns a single-emission connection publisher. The connection is
// acquired on first demand, off the caller's goroutine.
func (f *Factory) Create() reactive.Publisher[rdbc.Connection] {
	return reactive.PublisherFunc[rdbc.Connection](func(s reactive.Subscriber[rdbc.Connection]) {
		s.OnSubscribe(&connectSubscription{factory: f, downstream: s})
	})
}

type connectSubscription struct {
	factory    *Factory
	downstream reactive.Subscriber[rdbc.Connection]
	mu         sync.Mutex
	started    bool
	cancelled  bool
}

func (s *connectSubscription) Request(n int64) {
	if n <= 0 {
		s.downstream.OnError(fmt.Errorf("non-positive request: %d", n))
		return
	}

	s.mu.Lock()
	if s.started || s.cancelled {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.connect()
}

func (s *connectSubscription) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

func (s *connectSubscription) connect() {
	f := s.factory
	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ConnectTimeout)
	defer cancel()

	if err := f.sem.Acquire(ctx, 1); err != nil {
		s.downstream.OnError(fmt.Errorf("acquiring connection slot: %w", err))
		return
	}

	db, err := f.pool()
	if err != nil {
		f.sem.Release(1)
		s.downstream.OnError(err)
		return
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		f.sem.Release(1)
		s.downstream.OnError(fmt.Errorf("acquiring connection: %w", err))
		return
	}

	s.mu.Lock()
	cancelled := s.cancelled
	s.mu.Unlock()
	if cancelled {
		_ = conn.Close()
		f.sem.Release(1)
		return
	}

	f.cfg.Logger.Debug("connection acquired", "driver", f.driverName)
	s.downstream.OnNext(&sqlConnection{factory: f, conn: conn})
	s.downstream.OnComplete()
}

type sqlConnection struct {
	factory *Factory
	conn    *sql.Conn

	mu     sync.Mutex
	closed bool
}

func (c *sqlConnection) CreateStatement(sqlText string) rdbc.Statement {
	return &sqlStatement{conn: c, sqlText: sqlText}
}

func (c *sqlConnection) CreateBatch() rdbc.Batch {
	return &sqlBatch{conn: c}
}

func (c *sqlConnection) Close() reactive.Publisher[rdbc.Void] {
	return reactive.PublisherFunc[rdbc.Void](func(s reactive.Subscriber[rdbc.Void]) {
		s.OnSubscribe(&closeSubscription{conn: c, downstream: s})
	})
}

type closeSubscription struct {
	conn       *sqlConnection
	downstream reactive.Subscriber[rdbc.Void]
	once       sync.Once
}

func (s *closeSubscription) Request(n int64) {
	if n <= 0 {
		s.downstream.OnError(fmt.Errorf("non-positive request: %d", n))
		return
	}
	s.once.Do(func() {
		c := s.conn
		c.mu.Lock()
		alreadyClosed := c.closed
		c.closed = true
		c.mu.Unlock()

		if !alreadyClosed {
			if err := c.conn.Close(); err != nil {
				c.factory.sem.Release(1)
				s.downstream.OnError(fmt.Errorf("closing connection: %w", err))
				return
			}
			c.factory.sem.Release(1)
		}
		s.downstream.OnComplete()
	})
}

func (s *closeSubscription) Cancel() {}
