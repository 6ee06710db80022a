// Package source loads message history export files into records for the
// flatten engine.
//
// The engine is agnostic to the source file's own format; this package covers
// the platform's CSV history export. Loading is best-effort per line: a bad
// line is reported through the error callback and skipped, never fatal.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/steventflorez/Converted-Message/internal/config"
	"github.com/steventflorez/Converted-Message/internal/flatten"
)

// recordColumns is the attribute order records are assembled from. Source
// headers are normalized and mapped onto these names.
var recordColumns = []string{"message_id", "contact_id", "message_date", "send_type", "content"}

// LoadCSV reads a history export into flatten.Record values.
//
// opt:
//   - header_map: map original header -> record attribute name, for exports
//     whose headers differ from the defaults (e.g. localized headers).
//   - comma: field separator (string, first rune used; default ",").
//   - trim_space: trim cell edges (default true).
//   - lazy_quotes: tolerate bare quotes (default false).
//
// Header handling matches the platform exports seen in the wild: a UTF-8 BOM
// on the first header is stripped, headers are trimmed, lowercased, and
// spaces become underscores before mapping. Attributes missing from the file
// load as empty strings.
//
// Errors:
//   - Returns an error only for an unreadable header (nothing to load).
//   - Malformed data lines are passed to onErr with their 1-based line number
//     and skipped.
func LoadCSV(r io.Reader, opt config.Options, onErr func(line int, err error)) ([]flatten.Record, error) {
	comma := opt.Rune("comma", ',')
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")
	lazy := opt.Bool("lazy_quotes", false)

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = lazy
	cr.FieldsPerRecord = -1

	line := 0
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	srcToIdx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if mapped, ok := hm[h]; ok {
			h = mapped
		} else {
			h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		srcToIdx[h] = i
	}

	colIx := make([]int, len(recordColumns))
	for t, target := range recordColumns {
		colIx[t] = -1
		if si, ok := srcToIdx[target]; ok {
			colIx[t] = si
		}
	}

	var out []flatten.Record
	for {
		rec, err := readRec()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		cell := func(t int) string {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				return ""
			}
			v := rec[si]
			if trim {
				v = strings.TrimSpace(v)
			}
			return v
		}

		out = append(out, flatten.Record{
			MessageID:   cell(0),
			ContactID:   cell(1),
			MessageDate: cell(2),
			SendType:    cell(3),
			Content:     cell(4),
		})
	}
}
