// Package sink consumes record publishers: encoders turn records into an
// output format, and Run drives a publisher into an encoder under windowed
// demand.
package sink

import (
	"io"

	"rxsql/internal/binding"
)

// RecordEncoder is the common interface for the export formats. WriteHeader
// is called at most once, before the first record; Run does not call it for
// a stream without records.
type RecordEncoder interface {
	WriteHeader(columns []string) error

	// WriteRecord writes a single record's values in field order.
	WriteRecord(rec binding.Record) error

	// Flush ensures all buffered data reached the underlying writer.
	Flush() error

	// Error returns the first error that occurred during encoding, if any.
	Error() error

	// Close flushes the encoder and releases resources. For Excel this
	// writes the workbook out.
	io.Closer
}

func columnsOf(rec binding.Record) []string {
	fields := rec.Fields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

func valuesOf(rec binding.Record) []any {
	n := len(rec.Fields())
	values := make([]any, n)
	for i := 0; i < n; i++ {
		values[i] = rec.Get(i)
	}
	return values
}
