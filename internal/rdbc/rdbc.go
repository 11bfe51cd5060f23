// Package rdbc is the reactive driver SPI consumed by the bridge. Drivers
// implement this capability set; the bridge never touches database/sql or a
// wire protocol directly.
package rdbc

import "rxsql/internal/reactive"

// ConnectionFactory yields a single-emission publisher of connections.
type ConnectionFactory interface {
	Create() reactive.Publisher[Connection]
}

// Connection is one driver connection. Close returns a publisher that
// performs the close when subscribed; closing an already closed connection
// has no effect.
type Connection interface {
	CreateStatement(sql string) Statement
	CreateBatch() Batch
	Close() reactive.Publisher[Void]
}

// Void is the element type of effect-only publishers such as Connection.Close.
type Void struct{}

// Statement is a parameterized statement. Parameter indexes are 0-based at
// this level; Add accumulates the current bindings as one batch row.
type Statement interface {
	Bind(index int, value any)
	BindNull(index int, typeName string)
	Add() Statement
	FetchSize(rows int)
	ReturnGeneratedValues(names ...string)
	Execute() reactive.Publisher[Result]
}

// Batch aggregates multiple complete SQL strings for one round trip.
type Batch interface {
	Add(sql string) Batch
	Execute() reactive.Publisher[Result]
}

// Result carries either an update count or a row stream for one logical
// statement execution. Map transforms each row through f; a nil return from f
// is discarded by the consumer.
type Result interface {
	RowsUpdated() reactive.Publisher[int64]
	Map(f func(row Row, meta RowMetadata) any) reactive.Publisher[any]
}

// Row gives access to the column values of the current row, 0-based.
// Temporal columns are exchanged as LocalDate/LocalTime/LocalDateTime, never
// as time.Time.
type Row interface {
	Get(index int) any
}

// RowMetadata describes the columns of a result.
type RowMetadata interface {
	ColumnCount() int
	Column(index int) ColumnMetadata
}

// Nullability is the driver's three-valued nullability indicator.
type Nullability int

const (
	NullabilityUnknown Nullability = iota
	NonNull
	Nullable
)

// ColumnMetadata describes a single column. Precision and Scale return ok ==
// false when the driver does not report them.
type ColumnMetadata interface {
	Name() string
	Precision() (int, bool)
	Scale() (int, bool)
	Nullability() Nullability
}

// TypedColumnMetadata is the optional native column-type capability. Drivers
// that implement it report their own type descriptor names; the registry
// probes for it once at registration.
type TypedColumnMetadata interface {
	ColumnMetadata
	TypeName() string
}
