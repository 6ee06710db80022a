package flatten

import "sort"

// ColumnKind distinguishes the two discovered column shapes.
type ColumnKind int

const (
	// ColumnScalar holds a field's scalar answer verbatim.
	ColumnScalar ColumnKind = iota

	// ColumnIndicator marks whether one specific option value was selected
	// in a multi-select field ("X" or empty).
	ColumnIndicator
)

// ColumnSpec identifies one discovered output column.
//
// Value is set only for indicator columns. ColumnSpec is comparable and is
// used directly as a dedup key during discovery.
type ColumnSpec struct {
	Kind  ColumnKind
	Field string
	Value string
}

// Name returns the header label for the column.
func (c ColumnSpec) Name() string {
	if c.Kind == ColumnIndicator {
		return c.Field + ": " + c.Value
	}
	return c.Field
}

// fixedColumns lead every export row and are not subject to discovery or
// sorting: record identity plus the date/time split of the message timestamp.
var fixedColumns = []string{"message_id", "contact_id", "date", "time"}

// Catalog is the frozen, ordered set of output columns for one export run.
//
// It is built once by Discover, before any row is projected, and is read-only
// afterward. Row shape compatibility across the whole batch depends on this
// ordering staying fixed.
type Catalog struct {
	cols []ColumnSpec
}

// Columns returns the discovered columns in their frozen order.
//
// The returned slice is shared; callers must not modify it.
func (c *Catalog) Columns() []ColumnSpec { return c.cols }

// Header returns all column labels in output order: the fixed leading
// columns followed by the discovered columns.
func (c *Catalog) Header() []string {
	out := make([]string, 0, len(fixedColumns)+len(c.cols))
	out = append(out, fixedColumns...)
	for _, col := range c.cols {
		out = append(out, col.Name())
	}
	return out
}

// Width returns the number of cells in every projected row.
func (c *Catalog) Width() int { return len(fixedColumns) + len(c.cols) }

// Discover scans every parsed payload and builds the column catalog.
//
// Rules:
//   - A list-valued field contributes one Indicator(field, item) per distinct
//     item value observed in any payload's list for that field.
//   - A scalar field contributes one Scalar(field).
//   - A field that is scalar in one record and a list in another keeps both
//     column shapes; nothing is collapsed across type.
//
// After accumulation the columns are sorted into a deterministic total order
// (field, then scalar before indicators, then indicator value) so the output
// is reproducible regardless of record ordering. Only FlowResponse payloads
// contribute; FreeText and Empty payloads add nothing.
func Discover(payloads []Payload) *Catalog {
	seen := make(map[ColumnSpec]struct{})
	var cols []ColumnSpec

	add := func(spec ColumnSpec) {
		if _, ok := seen[spec]; ok {
			return
		}
		seen[spec] = struct{}{}
		cols = append(cols, spec)
	}

	for _, p := range payloads {
		if p.Kind != PayloadFlowResponse {
			continue
		}
		for field, fv := range p.Flow {
			if fv.IsList {
				for _, item := range fv.List {
					add(ColumnSpec{Kind: ColumnIndicator, Field: field, Value: item})
				}
				continue
			}
			add(ColumnSpec{Kind: ColumnScalar, Field: field})
		}
	}

	sort.Slice(cols, func(i, j int) bool {
		a, b := cols[i], cols[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Kind != b.Kind {
			return a.Kind == ColumnScalar
		}
		return a.Value < b.Value
	})

	return &Catalog{cols: cols}
}
