package sink

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"rxsql/internal/binding"
)

// PDFEncoder writes records into a simple PDF grid. PDF generation is memory
// intensive; prefer CSV or JSON for very large exports.
type PDFEncoder struct {
	pdf *fpdf.Fpdf
	w   io.Writer
	err error
}

func NewPDFEncoder(w io.Writer) *PDFEncoder {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 10)
	pdf.AddPage()
	return &PDFEncoder{pdf: pdf, w: w}
}

func (e *PDFEncoder) colWidth(n int) float64 {
	pageWidth, _ := e.pdf.GetPageSize()
	left, _, right, _ := e.pdf.GetMargins()
	return (pageWidth - left - right) / float64(n)
}

func (e *PDFEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}

	e.pdf.SetFont("Arial", "B", 10)
	width := e.colWidth(len(columns))
	for _, col := range columns {
		e.pdf.CellFormat(width, 7, col, "1", 0, "C", false, 0, "")
	}
	e.pdf.Ln(-1)
	e.pdf.SetFont("Arial", "", 10)
	return nil
}

func (e *PDFEncoder) WriteRecord(rec binding.Record) error {
	if e.err != nil {
		return e.err
	}

	values := valuesOf(rec)
	width := e.colWidth(len(values))
	for _, v := range values {
		str := strings.TrimPrefix(cellString(v), "'")
		e.pdf.CellFormat(width, 7, str, "1", 0, "L", false, 0, "")
	}
	e.pdf.Ln(-1)

	if err := e.pdf.Error(); err != nil {
		e.err = err
	}
	return e.err
}

func (e *PDFEncoder) Flush() error { return e.err }

func (e *PDFEncoder) Error() error { return e.err }

func (e *PDFEncoder) Close() error {
	if e.err != nil {
		return e.err
	}
	if err := e.pdf.Output(e.w); err != nil {
		e.err = err
		return err
	}
	return nil
}
