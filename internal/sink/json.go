package sink

import (
	"encoding/json"
	"io"

	"rxsql/internal/binding"
)

// JSONEncoder writes records as JSON Lines, keyed by field name.
type JSONEncoder struct {
	w       io.Writer
	columns []string
	err     error
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

// WriteHeader captures the column names to use as object keys; JSON Lines
// has no header row of its own.
func (e *JSONEncoder) WriteHeader(columns []string) error {
	e.columns = columns
	return nil
}

func (e *JSONEncoder) WriteRecord(rec binding.Record) error {
	if e.err != nil {
		return e.err
	}

	values := valuesOf(rec)
	obj := make(map[string]any, len(values))
	for i, v := range values {
		key := "column"
		if i < len(e.columns) {
			key = e.columns[i]
		}
		if b, ok := v.([]byte); ok {
			obj[key] = string(b)
		} else {
			obj[key] = v
		}
	}

	data, err := json.Marshal(obj)
	if err != nil {
		e.err = err
		return err
	}
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *JSONEncoder) Flush() error { return nil }

func (e *JSONEncoder) Error() error { return e.err }

func (e *JSONEncoder) Close() error { return e.Flush() }
