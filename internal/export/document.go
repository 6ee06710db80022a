// Package export assembles flattened message batches into tabular documents
// and serializes them.
//
// Two export modes exist:
//   - FlowResponses: the dynamic-schema export driven by the flatten engine.
//   - Messages: a fixed-schema free-text export with no discovery phase.
//
// Assembly is deterministic and does no filtering, sorting, or value
// transformation of its own; all business logic happens in the engine.
package export

import (
	"github.com/steventflorez/Converted-Message/internal/flatten"
)

// Document is the final tabular artifact: an ordered header plus ordered rows
// of string cells, every row the same width as the header. It is consumed
// once by a Writer and not mutated afterward.
type Document struct {
	Header []string
	Rows   [][]string
}

// FlowResponses runs the flatten engine over the batch and assembles the
// flow-response export: fixed columns first, then the discovered columns in
// their frozen catalog order, rows in input order.
func FlowResponses(records []flatten.Record, opts flatten.Options) (Document, flatten.Report) {
	res := flatten.Run(records, opts)

	doc := Document{
		Header: res.Catalog.Header(),
		Rows:   make([][]string, 0, len(res.Rows)),
	}
	for _, row := range res.Rows {
		doc.Rows = append(doc.Rows, row.Cells)
	}
	return doc, res.Report
}

// messagesHeader is the fixed schema of the free-text export. There is only
// ever one payload column, so no discovery pass is needed.
var messagesHeader = []string{"message_id", "contact_id", "date", "time", "send_type", "body"}

// Messages assembles the free-text export: one row per record with the
// message body as the single payload column.
//
// It shares the content parser and the date split with the flow-response
// mode. Records carrying a flow-response payload (or no recognized payload)
// participate with an empty body; records whose content fails to parse are
// excluded and reported, same as the engine.
func Messages(records []flatten.Record, opts flatten.Options) (Document, flatten.Report) {
	var report flatten.Report

	doc := Document{Header: messagesHeader}

	line := 0
	for _, rec := range records {
		line++
		if opts.SendType != "" && rec.SendType != opts.SendType {
			continue
		}
		report.Records++

		p, err := flatten.ParsePayload(rec)
		if err != nil {
			report.ParseFailures = append(report.ParseFailures, flatten.ParseFailure{
				Line:      line,
				MessageID: rec.MessageID,
				Err:       err,
			})
			continue
		}

		date, tm, ok := flatten.SplitMessageDate(rec.MessageDate)
		if !ok {
			report.MalformedDates++
		}

		body := ""
		if p.Kind == flatten.PayloadFreeText {
			body = flatten.Normalize(p.Body)
		}

		doc.Rows = append(doc.Rows, []string{
			rec.MessageID, rec.ContactID, date, tm, rec.SendType, body,
		})
	}
	report.Projected = len(doc.Rows)

	return doc, report
}
