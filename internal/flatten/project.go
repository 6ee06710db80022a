package flatten

import "strings"

// Row is one projected output row: a positional cell slice aligned to the
// catalog that produced it (fixed leading cells first, then one cell per
// discovered column, in catalog order).
type Row struct {
	Cells []string

	// Line is the 1-based input position of the source record, if known.
	Line int

	// MalformedDate is set when the record's message date did not contain
	// the expected date/time separator and was passed through unsplit.
	MalformedDate bool
}

// Project maps one record's payload onto the frozen catalog, producing one
// complete row.
//
// Alignment contract: len(row.Cells) == cat.Width() always. No cell is
// omitted for a column the catalog defines, and no cell exists outside the
// catalog. Sparse payloads simply produce empty cells.
//
// Per-column rules:
//   - Scalar(field): the field's scalar value, normalized; empty when the
//     field is absent or holds a list in this record.
//   - Indicator(field, value): "X" when the field holds a list containing
//     value; empty otherwise (including when the field is scalar here).
//
// Pure function of its inputs; the catalog is only read.
func Project(rec Record, p Payload, cat *Catalog) Row {
	cells := make([]string, cat.Width())

	date, tm, ok := SplitMessageDate(rec.MessageDate)
	cells[0] = rec.MessageID
	cells[1] = rec.ContactID
	cells[2] = date
	cells[3] = tm

	for i, col := range cat.Columns() {
		cells[len(fixedColumns)+i] = projectCell(p, col)
	}

	return Row{Cells: cells, MalformedDate: !ok}
}

func projectCell(p Payload, col ColumnSpec) string {
	if p.Kind != PayloadFlowResponse {
		return ""
	}
	fv, ok := p.Flow[col.Field]
	if !ok {
		return ""
	}

	switch col.Kind {
	case ColumnScalar:
		if fv.IsList {
			// Type mismatch: this record answered the field as a list; the
			// scalar column stays blank and the indicators carry the values.
			return ""
		}
		return Normalize(fv.Scalar)

	case ColumnIndicator:
		if !fv.IsList {
			return ""
		}
		for _, item := range fv.List {
			if item == col.Value {
				return "X"
			}
		}
	}
	return ""
}

// SplitMessageDate splits an ISO-8601 timestamp string into date and time
// cells.
//
// The split is purely syntactic: the string is cut at the 'T' separator and
// any trailing timezone offset ("Z", "+hh:mm", "-hh:mm") is stripped from the
// time part. No calendar computation or timezone conversion happens.
//
// A value without the separator is passed through unmodified as the date cell
// with an empty time cell, and ok is false so callers can count it as a
// malformed date. This is a local, informational condition, never fatal.
func SplitMessageDate(s string) (date, tm string, ok bool) {
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return s, "", false
	}

	date = s[:i]
	tm = s[i+1:]
	if j := strings.IndexAny(tm, "+-"); j >= 0 {
		tm = tm[:j]
	}
	tm = strings.TrimSuffix(tm, "Z")
	return date, tm, true
}
