// Package binding is the contract between the bridge and the type binding
// layer: per-column get capabilities, per-parameter set capabilities, and the
// record model they fill. The bridge supplies RowReader and ParamBinder
// implementations; bindings stay driver-agnostic.
package binding

import "time"

// RowReader exposes typed access to the current row by 1-based column index.
// After every typed access, WasNull reports whether that access read SQL NULL.
type RowReader interface {
	GetBool(index int) bool
	GetInt64(index int) int64
	GetFloat64(index int) float64
	GetString(index int) string
	GetBytes(index int) []byte
	GetTime(index int) time.Time     // date or timestamp columns
	GetClockTime(index int) time.Time // time-of-day columns
	GetAny(index int) any
	WasNull() bool
}

// ParamBinder exposes typed parameter binding by 1-based parameter index.
// A nil value reaches the driver as a typed null.
type ParamBinder interface {
	SetBool(index int, v *bool)
	SetInt64(index int, v *int64)
	SetFloat64(index int, v *float64)
	SetString(index int, v *string)
	SetBytes(index int, v []byte)
	SetDate(index int, v *time.Time)
	SetClockTime(index int, v *time.Time)
	SetTimestamp(index int, v *time.Time)
	SetAny(index int, v any, typeName string)
}

// GetContext carries one column read: the reader positioned on the current
// row, the 1-based index, and the slot the binding stores the decoded value
// into.
type GetContext struct {
	Row   RowReader
	Index int

	value any
}

func (c *GetContext) SetValue(v any) { c.value = v }
func (c *GetContext) Value() any     { return c.value }

// SetContext carries one parameter bind: the binder, the 1-based index, and
// the value to bind (nil for SQL NULL).
type SetContext struct {
	Binder   ParamBinder
	Index    int
	Value    any
	TypeName string
}

// Binding converts between driver values and library values for one field or
// parameter type.
type Binding interface {
	Get(ctx *GetContext) error
	Set(ctx *SetContext) error
}

// Field describes one record field: its name, its declared type name, and the
// binding that decodes it.
type Field struct {
	Name     string
	TypeName string
	Binding  Binding
}

// Record is a positional value table over a field list.
type Record interface {
	Fields() []Field
	Get(index int) any
	Set(index int, v any)
}

// RecordFactory constructs an empty record for a resolved field list.
type RecordFactory func(fields []Field) Record

// Library-facing nullability convention, mirrored from the JDBC constants.
const (
	ColumnNoNulls         = 0
	ColumnNullable        = 1
	ColumnNullableUnknown = 2
)

// ResultMetadata is the library-facing view of driver row metadata.
type ResultMetadata interface {
	ColumnCount() int
	ColumnName(index int) string
	ColumnTypeName(index int) string
	Precision(index int) int
	Scale(index int) int
	IsNullable(index int) int
}
