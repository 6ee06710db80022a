package flatten

// Options tunes one engine run.
type Options struct {
	// SendType, when non-empty, restricts the run to records whose SendType
	// matches exactly. Platform history exports mix directions; a typical
	// export wants only one of them.
	SendType string
}

// ParseFailure records one excluded record for the run report.
type ParseFailure struct {
	Line      int
	MessageID string
	Err       error
}

// Report summarizes one engine run.
//
// No condition reported here is fatal: the guiding policy is best-effort
// per-record isolation with batch-level completion guaranteed.
type Report struct {
	// Records is the number of input records after SendType filtering.
	Records int

	// Projected is the number of rows produced.
	Projected int

	// ParseFailures lists records whose content was not valid JSON; they
	// are excluded from discovery and projection.
	ParseFailures []ParseFailure

	// MalformedDates counts rows whose message date lacked the expected
	// separator and was passed through unsplit.
	MalformedDates int
}

// Result is the outcome of one engine run: the frozen catalog, the projected
// rows in input order, and the run report.
type Result struct {
	Catalog *Catalog
	Rows    []Row
	Report  Report
}

// Run executes the full two-pass transform over a batch of records.
//
// Pass order is strict: every record is parsed, the catalog is discovered
// from all successfully parsed payloads and frozen, and only then is any row
// projected. Records whose content fails to parse are excluded and reported;
// everything else, unrecognized payload shapes included, produces a row.
//
// An empty batch is not an error: the result carries a catalog with only the
// fixed columns and zero rows.
func Run(records []Record, opts Options) Result {
	var report Report

	kept := make([]Record, 0, len(records))
	lines := make([]int, 0, len(records))
	for i, rec := range records {
		if opts.SendType != "" && rec.SendType != opts.SendType {
			continue
		}
		kept = append(kept, rec)
		lines = append(lines, i+1)
	}
	report.Records = len(kept)

	type parsed struct {
		rec     Record
		line    int
		payload Payload
	}
	ok := make([]parsed, 0, len(kept))
	for i, rec := range kept {
		p, err := ParsePayload(rec)
		if err != nil {
			report.ParseFailures = append(report.ParseFailures, ParseFailure{
				Line:      lines[i],
				MessageID: rec.MessageID,
				Err:       err,
			})
			continue
		}
		ok = append(ok, parsed{rec: rec, line: lines[i], payload: p})
	}

	payloads := make([]Payload, len(ok))
	for i := range ok {
		payloads[i] = ok[i].payload
	}
	catalog := Discover(payloads)

	rows := make([]Row, 0, len(ok))
	for _, pr := range ok {
		row := Project(pr.rec, pr.payload, catalog)
		row.Line = pr.line
		if row.MalformedDate {
			report.MalformedDates++
		}
		rows = append(rows, row)
	}
	report.Projected = len(rows)

	return Result{Catalog: catalog, Rows: rows, Report: report}
}
