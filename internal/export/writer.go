package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Writer serializes a Document into its final downloadable form.
//
// The engine does not care about the output file format; anything that can
// take an ordered header plus ordered rows of string cells qualifies.
type Writer interface {
	WriteDocument(doc Document) error
}

// CSVWriter writes a Document as CSV to an io.Writer.
type CSVWriter struct {
	W io.Writer

	// Comma overrides the field separator. Zero means ','.
	Comma rune
}

// WriteDocument implements Writer.
//
// Errors:
//   - Wraps the first write error with the failing row's position.
//   - A row narrower or wider than the header is a caller bug and surfaces
//     as the csv package's field-count error.
func (w CSVWriter) WriteDocument(doc Document) error {
	cw := csv.NewWriter(w.W)
	if w.Comma != 0 {
		cw.Comma = w.Comma
	}

	if err := cw.Write(doc.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range doc.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
