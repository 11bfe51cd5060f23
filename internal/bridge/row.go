package bridge

import (
	"time"

	"rxsql/internal/rdbc"
)

// rowAdapter exposes one driver row to the binding layer through typed
// 1-based accessors. wasNull reflects the most recent access only.
// Non-nullable accessors return a zero sentinel for SQL NULL; nullable ones
// pair with WasNull.
type rowAdapter struct {
	row     rdbc.Row
	wasNull bool
}

func (a *rowAdapter) get(index int) any {
	v := a.row.Get(index - 1)
	a.wasNull = v == nil
	return v
}

func (a *rowAdapter) WasNull() bool { return a.wasNull }

func (a *rowAdapter) GetBool(index int) bool {
	switch v := a.get(index).(type) {
	case bool:
		return v
	case int64:
		return v != 0
	default:
		return false
	}
}

func (a *rowAdapter) GetInt64(index int) int64 {
	switch v := a.get(index).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func (a *rowAdapter) GetFloat64(index int) float64 {
	switch v := a.get(index).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (a *rowAdapter) GetString(index int) string {
	switch v := a.get(index).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func (a *rowAdapter) GetBytes(index int) []byte {
	switch v := a.get(index).(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// GetTime reads a date or timestamp column. The driver exchanges temporal
// values as local date/datetime components, never as time.Time.
func (a *rowAdapter) GetTime(index int) time.Time {
	switch v := a.get(index).(type) {
	case rdbc.LocalDateTime:
		return v.In(time.UTC)
	case rdbc.LocalDate:
		return v.In(time.UTC)
	default:
		return time.Time{}
	}
}

// GetClockTime reads a time-of-day column onto the zero date.
func (a *rowAdapter) GetClockTime(index int) time.Time {
	switch v := a.get(index).(type) {
	case rdbc.LocalTime:
		return v.On(rdbc.LocalDate{Year: 1, Month: time.January, Day: 1}, time.UTC)
	default:
		return time.Time{}
	}
}

func (a *rowAdapter) GetAny(index int) any {
	switch v := a.get(index).(type) {
	case rdbc.LocalDateTime:
		return v.In(time.UTC)
	case rdbc.LocalDate:
		return v.In(time.UTC)
	case rdbc.LocalTime:
		return v.On(rdbc.LocalDate{Year: 1, Month: time.January, Day: 1}, time.UTC)
	default:
		return v
	}
}
