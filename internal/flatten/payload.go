package flatten

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadKind tags the recognized payload shapes.
type PayloadKind int

const (
	// PayloadEmpty marks a payload matching neither recognized shape.
	// The record still participates in the export with blank cells.
	PayloadEmpty PayloadKind = iota

	// PayloadFlowResponse marks a structured flow-response payload
	// (eventParameters.flowResponse): a map from field name to a scalar
	// answer or a list of selected option labels.
	PayloadFlowResponse

	// PayloadFreeText marks a free-text message payload (body).
	PayloadFreeText
)

// FieldValue is one flow-response field: a scalar answer or a multi-select
// list, never both.
type FieldValue struct {
	Scalar string
	List   []string
	IsList bool
}

// Payload is the decoded form of Record.Content.
//
// Exactly one branch is populated, selected by Kind:
//   - PayloadFlowResponse: Flow
//   - PayloadFreeText: Body
//   - PayloadEmpty: neither
type Payload struct {
	Kind PayloadKind
	Flow map[string]FieldValue
	Body string
}

// ParseError reports a record whose content could not be decoded as JSON.
//
// It is local to one record: the caller excludes the record from discovery
// and projection, counts the failure, and continues the batch.
type ParseError struct {
	MessageID string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse content of message %q: %v", e.MessageID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParsePayload decodes one record's content into a Payload.
//
// Recognized shapes, in priority order:
//   - eventParameters.flowResponse: field name -> scalar or list of labels
//   - body: free-text message
//
// Content that parses as JSON but matches neither shape yields an Empty
// payload, not an error. Content that is not valid JSON yields a *ParseError
// carrying the record's MessageID.
//
// Edge cases:
//   - nil or blank string content is Empty (platform exports leave the cell
//     empty for some system events).
//   - Content may already be a materialized map[string]any; it is used as-is.
//   - Non-string, non-map content (numbers, arrays) is Empty.
func ParsePayload(rec Record) (Payload, error) {
	var obj map[string]any

	switch c := rec.Content.(type) {
	case nil:
		return Payload{Kind: PayloadEmpty}, nil

	case string:
		if strings.TrimSpace(c) == "" {
			return Payload{Kind: PayloadEmpty}, nil
		}
		dec := json.NewDecoder(strings.NewReader(c))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return Payload{}, &ParseError{MessageID: rec.MessageID, Err: err}
		}

	case map[string]any:
		obj = c

	default:
		return Payload{Kind: PayloadEmpty}, nil
	}

	if flow, ok := extractFlowResponse(obj); ok {
		return Payload{Kind: PayloadFlowResponse, Flow: flow}, nil
	}

	if body, ok := obj["body"]; ok {
		if s := stringifyScalar(body); s != "" {
			return Payload{Kind: PayloadFreeText, Body: s}, nil
		}
	}

	return Payload{Kind: PayloadEmpty}, nil
}

// extractFlowResponse pulls eventParameters.flowResponse out of a decoded
// payload object and normalizes each field into a FieldValue.
func extractFlowResponse(obj map[string]any) (map[string]FieldValue, bool) {
	params, ok := obj["eventParameters"].(map[string]any)
	if !ok {
		return nil, false
	}
	raw, ok := params["flowResponse"].(map[string]any)
	if !ok {
		return nil, false
	}

	flow := make(map[string]FieldValue, len(raw))
	for field, v := range raw {
		switch t := v.(type) {
		case []any:
			list := make([]string, 0, len(t))
			for _, it := range t {
				if it == nil {
					continue
				}
				list = append(list, stringifyScalar(it))
			}
			flow[field] = FieldValue{List: list, IsList: true}
		default:
			flow[field] = FieldValue{Scalar: stringifyScalar(v)}
		}
	}
	return flow, true
}

// stringifyScalar renders a decoded JSON scalar as a cell string.
//
// json.Number keeps its literal form (no float64 round trip). nil renders as
// the empty string. Nested structures should not appear as scalars in real
// payloads; they fall through to %v so the value is at least visible.
func stringifyScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
