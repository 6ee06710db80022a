package config

import (
	"reflect"
	"testing"
)

func TestOptions_Defaults(t *testing.T) {
	// nil and empty maps behave the same: every accessor yields its default.
	var o Options

	if got := o.String("x", "def"); got != "def" {
		t.Fatalf("String=%q, want def", got)
	}
	if got := o.Bool("x", true); got != true {
		t.Fatalf("Bool=%v, want true", got)
	}
	if got := o.Int("x", 7); got != 7 {
		t.Fatalf("Int=%d, want 7", got)
	}
	if got := o.Rune("x", ';'); got != ';' {
		t.Fatalf("Rune=%q, want ;", got)
	}
	if got := o.Any("x"); got != nil {
		t.Fatalf("Any=%v, want nil", got)
	}
	if got := o.StringMap("x"); len(got) != 0 {
		t.Fatalf("StringMap=%v, want empty", got)
	}
}

func TestOptions_TypedAccess(t *testing.T) {
	o := Options{
		"s":     "v",
		"b":     true,
		"i":     3,
		"f":     float64(4), // JSON decoder shape
		"r":     "é",
		"wrong": 12,
	}

	if got := o.String("s", ""); got != "v" {
		t.Fatalf("String=%q, want v", got)
	}
	if got := o.Bool("b", false); !got {
		t.Fatalf("Bool=false, want true")
	}
	if got := o.Int("i", 0); got != 3 {
		t.Fatalf("Int=%d, want 3", got)
	}
	if got := o.Int("f", 0); got != 4 {
		t.Fatalf("Int(float64)=%d, want 4", got)
	}
	if got := o.Rune("r", 'x'); got != 'é' {
		t.Fatalf("Rune=%q, want é", got)
	}
	// Wrong type falls back to default rather than panicking.
	if got := o.String("wrong", "def"); got != "def" {
		t.Fatalf("String(wrong type)=%q, want def", got)
	}
}

func TestOptions_StringMapShapes(t *testing.T) {
	o := Options{
		"typed": map[string]string{"a": "b"},
		"json":  map[string]any{"a": "b", "skip": 1},
	}

	if got := o.StringMap("typed"); !reflect.DeepEqual(got, map[string]string{"a": "b"}) {
		t.Fatalf("StringMap(typed)=%v", got)
	}
	if got := o.StringMap("json"); !reflect.DeepEqual(got, map[string]string{"a": "b"}) {
		t.Fatalf("StringMap(json)=%v, want non-strings skipped", got)
	}
}
