package bridge

import (
	"strings"
	"time"

	"rxsql/internal/rdbc"
	"rxsql/internal/render"
)

// paramAdapter exposes typed 1-based parameter binding to the binding layer,
// translating to the driver's 0-based bind/bindNull calls. Temporal values
// are substituted to local date/time components before binding. The family
// switches are the hook for dialects whose drivers need special bind
// treatment; no family currently overrides the default.
type paramAdapter struct {
	stmt    rdbc.Statement
	dialect render.Dialect
}

func newParamAdapter(stmt rdbc.Statement, d render.Dialect) *paramAdapter {
	return &paramAdapter{stmt: stmt, dialect: d}
}

func (a *paramAdapter) bind(index int, v any) {
	switch a.dialect.Family {
	default:
		a.stmt.Bind(index-1, v)
	}
}

func (a *paramAdapter) bindNull(index int, typeName string) {
	switch a.dialect.Family {
	default:
		a.stmt.BindNull(index-1, typeName)
	}
}

func (a *paramAdapter) SetBool(index int, v *bool) {
	if v == nil {
		a.bindNull(index, "BOOLEAN")
		return
	}
	a.bind(index, *v)
}

func (a *paramAdapter) SetInt64(index int, v *int64) {
	if v == nil {
		a.bindNull(index, "BIGINT")
		return
	}
	a.bind(index, *v)
}

func (a *paramAdapter) SetFloat64(index int, v *float64) {
	if v == nil {
		a.bindNull(index, "DOUBLE")
		return
	}
	a.bind(index, *v)
}

func (a *paramAdapter) SetString(index int, v *string) {
	if v == nil {
		a.bindNull(index, "VARCHAR")
		return
	}
	a.bind(index, *v)
}

func (a *paramAdapter) SetBytes(index int, v []byte) {
	if v == nil {
		a.bindNull(index, "BLOB")
		return
	}
	a.bind(index, v)
}

func (a *paramAdapter) SetDate(index int, v *time.Time) {
	if v == nil {
		a.bindNull(index, "DATE")
		return
	}
	a.bind(index, rdbc.DateOf(*v))
}

func (a *paramAdapter) SetClockTime(index int, v *time.Time) {
	if v == nil {
		a.bindNull(index, "TIME")
		return
	}
	a.bind(index, rdbc.TimeOf(*v))
}

func (a *paramAdapter) SetTimestamp(index int, v *time.Time) {
	if v == nil {
		a.bindNull(index, "TIMESTAMP")
		return
	}
	a.bind(index, rdbc.DateTimeOf(*v))
}

func (a *paramAdapter) SetAny(index int, v any, typeName string) {
	if v == nil {
		if typeName == "" {
			typeName = typeNameFallback
		}
		a.bindNull(index, typeName)
		return
	}
	if t, ok := v.(time.Time); ok {
		switch strings.ToUpper(typeName) {
		case "DATE":
			a.bind(index, rdbc.DateOf(t))
		case "TIME":
			a.bind(index, rdbc.TimeOf(t))
		default:
			a.bind(index, rdbc.DateTimeOf(t))
		}
		return
	}
	a.bind(index, v)
}
