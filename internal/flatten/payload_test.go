package flatten

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePayload_FlowResponseFromString(t *testing.T) {
	// Contract:
	//   - String content is decoded as JSON.
	//   - eventParameters.flowResponse becomes a field->FieldValue map.
	//   - Scalars and lists are both supported; list items are stringified.
	rec := Record{
		MessageID: "m1",
		Content:   `{"eventParameters":{"flowResponse":{"color":["red","blue"],"age":27,"name":"Ana"}}}`,
	}

	p, err := ParsePayload(rec)
	if err != nil {
		t.Fatalf("ParsePayload() err=%v, want nil", err)
	}
	if p.Kind != PayloadFlowResponse {
		t.Fatalf("Kind=%v, want PayloadFlowResponse", p.Kind)
	}

	want := map[string]FieldValue{
		"color": {List: []string{"red", "blue"}, IsList: true},
		"age":   {Scalar: "27"},
		"name":  {Scalar: "Ana"},
	}
	if !reflect.DeepEqual(p.Flow, want) {
		t.Fatalf("Flow=%#v, want %#v", p.Flow, want)
	}
}

func TestParsePayload_MaterializedMap(t *testing.T) {
	// The loader may hand over content already decoded; it must be accepted
	// without a JSON round trip.
	rec := Record{
		MessageID: "m1",
		Content: map[string]any{
			"eventParameters": map[string]any{
				"flowResponse": map[string]any{"status": "ok"},
			},
		},
	}

	p, err := ParsePayload(rec)
	if err != nil {
		t.Fatalf("ParsePayload() err=%v, want nil", err)
	}
	if p.Kind != PayloadFlowResponse {
		t.Fatalf("Kind=%v, want PayloadFlowResponse", p.Kind)
	}
	if got := p.Flow["status"]; got.Scalar != "ok" || got.IsList {
		t.Fatalf("Flow[status]=%#v, want scalar ok", got)
	}
}

func TestParsePayload_BodyBranch(t *testing.T) {
	p, err := ParsePayload(Record{MessageID: "m2", Content: `{"body":"hello"}`})
	if err != nil {
		t.Fatalf("ParsePayload() err=%v, want nil", err)
	}
	if p.Kind != PayloadFreeText {
		t.Fatalf("Kind=%v, want PayloadFreeText", p.Kind)
	}
	if p.Body != "hello" {
		t.Fatalf("Body=%q, want hello", p.Body)
	}
}

func TestParsePayload_FlowResponseWinsOverBody(t *testing.T) {
	// When both shapes are present, flowResponse takes priority.
	p, err := ParsePayload(Record{
		Content: `{"body":"hi","eventParameters":{"flowResponse":{"a":"b"}}}`,
	})
	if err != nil {
		t.Fatalf("ParsePayload() err=%v, want nil", err)
	}
	if p.Kind != PayloadFlowResponse {
		t.Fatalf("Kind=%v, want PayloadFlowResponse", p.Kind)
	}
}

func TestParsePayload_UnrecognizedShapeIsEmptyNotError(t *testing.T) {
	// A payload matching neither shape participates with an empty payload;
	// it is not a failure.
	tests := []struct {
		name    string
		content any
	}{
		{name: "other_json_object", content: `{"type":"delivery_receipt"}`},
		{name: "nil_content", content: nil},
		{name: "blank_string", content: "   "},
		{name: "non_object_content", content: 42},
		{name: "empty_event_parameters", content: `{"eventParameters":{}}`},
		{name: "flow_response_not_object", content: `{"eventParameters":{"flowResponse":"x"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParsePayload(Record{MessageID: "m", Content: tc.content})
			if err != nil {
				t.Fatalf("ParsePayload() err=%v, want nil", err)
			}
			if p.Kind != PayloadEmpty {
				t.Fatalf("Kind=%v, want PayloadEmpty", p.Kind)
			}
		})
	}
}

func TestParsePayload_InvalidJSONIsParseError(t *testing.T) {
	// Scenario: content "{not json" is a tagged per-record failure carrying
	// the record identifier, never a panic.
	_, err := ParsePayload(Record{MessageID: "m42", Content: `{not json`})
	if err == nil {
		t.Fatalf("ParsePayload() err=nil, want *ParseError")
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err=%T, want *ParseError", err)
	}
	if pe.MessageID != "m42" {
		t.Fatalf("MessageID=%q, want m42", pe.MessageID)
	}
}

func TestParsePayload_NullListItemsSkipped(t *testing.T) {
	p, err := ParsePayload(Record{
		Content: `{"eventParameters":{"flowResponse":{"opts":["a",null,"b"]}}}`,
	})
	if err != nil {
		t.Fatalf("ParsePayload() err=%v, want nil", err)
	}
	got := p.Flow["opts"]
	if !reflect.DeepEqual(got.List, []string{"a", "b"}) {
		t.Fatalf("List=%v, want [a b]", got.List)
	}
}
