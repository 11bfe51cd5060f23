package binding

import (
	"fmt"
	"strings"
	"time"
)

// defaultRecord is the positional record used when no custom factory is
// configured.
type defaultRecord struct {
	fields []Field
	values []any
}

// NewRecord is the default RecordFactory.
func NewRecord(fields []Field) Record {
	return &defaultRecord{fields: fields, values: make([]any, len(fields))}
}

func (r *defaultRecord) Fields() []Field    { return r.fields }
func (r *defaultRecord) Get(index int) any  { return r.values[index] }
func (r *defaultRecord) Set(index int, v any) { r.values[index] = v }

// ScalarBinding decodes and binds the common scalar kinds by type name. It is
// the binding used by the server and CLI paths, where no generated schema
// exists.
type ScalarBinding struct {
	// TypeName selects the accessor family: BOOLEAN; TINYINT, SMALLINT,
	// INTEGER, BIGINT; REAL, FLOAT, DOUBLE, DECIMAL, NUMERIC; CHAR, VARCHAR,
	// TEXT, CLOB; BINARY, VARBINARY, BLOB; DATE, TIMESTAMP; TIME. Anything
	// else goes through the untyped accessor.
	TypeName string
}

func (b ScalarBinding) Get(ctx *GetContext) error {
	switch strings.ToUpper(b.TypeName) {
	case "BOOLEAN":
		v := ctx.Row.GetBool(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT":
		v := ctx.Row.GetInt64(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	case "REAL", "FLOAT", "DOUBLE", "DECIMAL", "NUMERIC":
		v := ctx.Row.GetFloat64(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	case "CHAR", "VARCHAR", "TEXT", "CLOB":
		v := ctx.Row.GetString(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	case "BINARY", "VARBINARY", "BLOB":
		v := ctx.Row.GetBytes(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	case "DATE", "TIMESTAMP":
		v := ctx.Row.GetTime(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	case "TIME":
		v := ctx.Row.GetClockTime(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	default:
		v := ctx.Row.GetAny(ctx.Index)
		if ctx.Row.WasNull() {
			ctx.SetValue(nil)
		} else {
			ctx.SetValue(v)
		}
	}
	return nil
}

func (b ScalarBinding) Set(ctx *SetContext) error {
	if ctx.Value == nil {
		ctx.Binder.SetAny(ctx.Index, nil, typeNameOr(b.TypeName, ctx.TypeName))
		return nil
	}

	switch v := ctx.Value.(type) {
	case bool:
		ctx.Binder.SetBool(ctx.Index, &v)
	case int:
		i := int64(v)
		ctx.Binder.SetInt64(ctx.Index, &i)
	case int32:
		i := int64(v)
		ctx.Binder.SetInt64(ctx.Index, &i)
	case int64:
		ctx.Binder.SetInt64(ctx.Index, &v)
	case float32:
		f := float64(v)
		ctx.Binder.SetFloat64(ctx.Index, &f)
	case float64:
		ctx.Binder.SetFloat64(ctx.Index, &v)
	case string:
		ctx.Binder.SetString(ctx.Index, &v)
	case []byte:
		ctx.Binder.SetBytes(ctx.Index, v)
	case time.Time:
		switch strings.ToUpper(typeNameOr(b.TypeName, ctx.TypeName)) {
		case "DATE":
			ctx.Binder.SetDate(ctx.Index, &v)
		case "TIME":
			ctx.Binder.SetClockTime(ctx.Index, &v)
		default:
			ctx.Binder.SetTimestamp(ctx.Index, &v)
		}
	default:
		ctx.Binder.SetAny(ctx.Index, ctx.Value, typeNameOr(b.TypeName, ctx.TypeName))
	}
	return nil
}

func typeNameOr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// FieldsFromMetadata derives a scalar field list from result metadata. Used
// by raw-SQL queries that have no declared field list.
func FieldsFromMetadata(meta ResultMetadata) []Field {
	fields := make([]Field, meta.ColumnCount())
	for i := range fields {
		name := meta.ColumnName(i + 1)
		if name == "" {
			name = fmt.Sprintf("column%d", i+1)
		}
		tn := meta.ColumnTypeName(i + 1)
		fields[i] = Field{Name: name, TypeName: tn, Binding: ScalarBinding{TypeName: tn}}
	}
	return fields
}
