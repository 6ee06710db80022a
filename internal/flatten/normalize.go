package flatten

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Normalize applies a corrective re-encoding round trip to a text value
// before it is written into a cell.
//
// The historical exporter ran every answer through an encode/decode round
// trip in the same encoding to repair values suspected of having been decoded
// with the wrong character set upstream. That round trip is preserved here:
// the string is pushed through the UTF-8 encoder and decoder pair, which is
// the identity on well-formed UTF-8 and replaces invalid byte sequences with
// U+FFFD.
//
// Properties relied on by callers and tests:
//   - Idempotent: Normalize(Normalize(x)) == Normalize(x).
//   - Correctly encoded text passes through unchanged.
//
// NOTE: a same-encoding round trip cannot repair genuine mis-decoding (e.g.
// Latin-1 bytes read as UTF-8); it only scrubs invalid sequences. Kept as-is
// to match the observed exporter behavior.
func Normalize(text string) string {
	out, _, err := transform.String(
		transform.Chain(unicode.UTF8.NewEncoder(), unicode.UTF8.NewDecoder()),
		text,
	)
	if err != nil {
		// The UTF-8 pair does not error on any input in practice; fall back
		// to the original value rather than dropping data.
		return text
	}
	return out
}
