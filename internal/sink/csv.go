package sink

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"rxsql/internal/binding"
)

// CSVEncoder writes records as CSV through a 64KB buffered writer to keep
// syscall counts down on large exports.
type CSVEncoder struct {
	w   *csv.Writer
	buf *bufio.Writer
}

func NewCSVEncoder(w io.Writer) *CSVEncoder {
	buf := bufio.NewWriterSize(w, 64*1024)
	return &CSVEncoder{
		w:   csv.NewWriter(buf),
		buf: buf,
	}
}

func (e *CSVEncoder) WriteHeader(columns []string) error {
	return e.w.Write(columns)
}

func (e *CSVEncoder) WriteRecord(rec binding.Record) error {
	values := valuesOf(rec)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = cellString(v)
	}
	return e.w.Write(out)
}

func (e *CSVEncoder) Flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	return e.buf.Flush()
}

func (e *CSVEncoder) Error() error {
	return e.w.Error()
}

func (e *CSVEncoder) Close() error {
	return e.Flush()
}

func cellString(val any) string {
	var s string
	switch v := val.(type) {
	case nil:
		s = "NULL"
	case []byte:
		s = string(v)
	case string:
		s = v
	case time.Time:
		s = v.Format("2006-01-02 15:04:05")
	case int64:
		s = strconv.FormatInt(v, 10)
	case int:
		s = strconv.Itoa(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			s = "1"
		} else {
			s = "0"
		}
	default:
		s = ""
	}

	// Formula injection mitigation: neutralize leading =, +, -, @.
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@':
			s = "'" + s
		}
	}
	return s
}
