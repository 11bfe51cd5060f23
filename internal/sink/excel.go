package sink

import (
	"io"

	"github.com/xuri/excelize/v2"

	"rxsql/internal/binding"
)

// ExcelEncoder writes records to an .xlsx workbook through the excelize
// stream writer, which keeps memory flat for large result sets.
type ExcelEncoder struct {
	f      *excelize.File
	sw     *excelize.StreamWriter
	w      io.Writer
	rowIdx int
	err    error
}

func NewExcelEncoder(w io.Writer) *ExcelEncoder {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		return &ExcelEncoder{err: err}
	}
	return &ExcelEncoder{f: f, sw: sw, w: w, rowIdx: 1}
}

func (e *ExcelEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}

	row := make([]any, len(columns))
	for i, col := range columns {
		row[i] = col
	}
	return e.writeRow(row)
}

func (e *ExcelEncoder) WriteRecord(rec binding.Record) error {
	if e.err != nil {
		return e.err
	}

	values := valuesOf(rec)
	row := make([]any, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case []byte:
			row[i] = string(t)
		case nil:
			row[i] = "NULL"
		default:
			// excelize handles numbers and times natively.
			row[i] = v
		}
	}
	return e.writeRow(row)
}

func (e *ExcelEncoder) writeRow(row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, e.rowIdx)
	if err != nil {
		e.err = err
		return err
	}
	if err := e.sw.SetRow(cell, row); err != nil {
		e.err = err
		return err
	}
	e.rowIdx++
	return nil
}

func (e *ExcelEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return nil
}

func (e *ExcelEncoder) Error() error { return e.err }

// Close finalizes the stream writer and writes the workbook to the output.
func (e *ExcelEncoder) Close() error {
	if e.err != nil {
		return e.err
	}
	if err := e.sw.Flush(); err != nil {
		e.err = err
		return err
	}
	if err := e.f.Write(e.w); err != nil {
		e.err = err
		return err
	}
	return e.f.Close()
}
