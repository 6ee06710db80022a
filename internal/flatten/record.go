// Package flatten implements the two-pass flattening engine for message
// history exports.
//
// The engine turns a batch of message records, each carrying a JSON payload
// whose shape varies record to record, into a flat table with one stable
// column set: scalar answers become one column each, and multi-select answers
// expand into one indicator column per distinct option value observed
// anywhere in the batch.
//
// Because the column set depends on values across the whole batch, the engine
// runs in two coordinated passes over the same records:
//
//  1. Discover: scan every parsed payload and freeze an ordered Catalog.
//  2. Project: map each record against the frozen Catalog into one complete,
//     aligned row.
//
// Design constraints:
//   - Per-record failures never abort the batch; they are counted and
//     reported (see Report).
//   - The Catalog is immutable once built; projection only reads it.
//   - Everything here is pure and in-memory; I/O lives in callers.
package flatten

// Record is one input row of a message history export.
//
// Content is either a JSON-encoded string or a structure already materialized
// by the loader (map[string]any). Records are owned by the caller and are
// never mutated by the engine.
type Record struct {
	MessageID   string
	ContactID   string
	MessageDate string // ISO-8601 timestamp string, may carry a timezone offset
	SendType    string
	Content     any
}
