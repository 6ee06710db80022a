package flatten

import (
	"reflect"
	"testing"
)

func TestProject_IndicatorCells(t *testing.T) {
	// Scenario A, projection side: row 1 selects red and blue, row 2 only
	// blue. Cells align to the catalog order (blue before red).
	payloads := []Payload{
		flowPayload(t, map[string]any{"color": []string{"red", "blue"}}),
		flowPayload(t, map[string]any{"color": []string{"blue"}}),
	}
	cat := Discover(payloads)

	rec := Record{MessageID: "m1", ContactID: "c1", MessageDate: "2024-03-01T10:00:00+02:00"}

	r1 := Project(rec, payloads[0], cat)
	if want := []string{"m1", "c1", "2024-03-01", "10:00:00", "X", "X"}; !reflect.DeepEqual(r1.Cells, want) {
		t.Fatalf("row1=%v, want %v", r1.Cells, want)
	}

	r2 := Project(rec, payloads[1], cat)
	if want := []string{"m1", "c1", "2024-03-01", "10:00:00", "X", ""}; !reflect.DeepEqual(r2.Cells, want) {
		t.Fatalf("row2=%v, want %v", r2.Cells, want)
	}
}

func TestProject_ScalarListTypeMismatch(t *testing.T) {
	// Scenario E: the scalar column is blank for the record that answered
	// with a list, and vice versa for the indicators.
	payloads := []Payload{
		flowPayload(t, map[string]any{"status": "ok"}),
		flowPayload(t, map[string]any{"status": []string{"ok", "pending"}}),
	}
	cat := Discover(payloads)
	rec := Record{MessageID: "m", ContactID: "c", MessageDate: "2024-01-02T08:30:00Z"}

	// Catalog order: Scalar(status), Indicator(status,ok), Indicator(status,pending).
	r1 := Project(rec, payloads[0], cat)
	if got := r1.Cells[4:]; !reflect.DeepEqual(got, []string{"ok", "", ""}) {
		t.Fatalf("record1 cells=%v, want [ok  ]", got)
	}

	r2 := Project(rec, payloads[1], cat)
	if got := r2.Cells[4:]; !reflect.DeepEqual(got, []string{"", "X", "X"}) {
		t.Fatalf("record2 cells=%v, want [ X X]", got)
	}
}

func TestProject_SparsePayloadStillComplete(t *testing.T) {
	// Scenario D: a free-text record participates with every discovered
	// column blank and the fixed columns populated.
	payloads := []Payload{
		flowPayload(t, map[string]any{"q": []string{"yes"}, "score": "5"}),
		{Kind: PayloadFreeText, Body: "hello"},
	}
	cat := Discover(payloads)

	rec := Record{MessageID: "m9", ContactID: "c9", MessageDate: "2024-05-05T12:00:00"}
	row := Project(rec, payloads[1], cat)

	if len(row.Cells) != cat.Width() {
		t.Fatalf("len(Cells)=%d, want %d", len(row.Cells), cat.Width())
	}
	if want := []string{"m9", "c9", "2024-05-05", "12:00:00"}; !reflect.DeepEqual(row.Cells[:4], want) {
		t.Fatalf("fixed cells=%v, want %v", row.Cells[:4], want)
	}
	for i, cell := range row.Cells[4:] {
		if cell != "" {
			t.Fatalf("discovered cell %d=%q, want empty", i, cell)
		}
	}
}

func TestProject_MalformedDatePassesThrough(t *testing.T) {
	cat := Discover(nil)
	rec := Record{MessageID: "m", ContactID: "c", MessageDate: "not-a-timestamp"}

	row := Project(rec, Payload{Kind: PayloadEmpty}, cat)
	if !row.MalformedDate {
		t.Fatalf("MalformedDate=false, want true")
	}
	if row.Cells[2] != "not-a-timestamp" || row.Cells[3] != "" {
		t.Fatalf("date/time=%q/%q, want raw passthrough and empty", row.Cells[2], row.Cells[3])
	}
}

func TestSplitMessageDate(t *testing.T) {
	// Scenario C plus offset/suffix variants. The split is syntactic only.
	tests := []struct {
		name     string
		in       string
		wantDate string
		wantTime string
		wantOK   bool
	}{
		{name: "positive_offset", in: "2024-03-01T10:00:00+02:00", wantDate: "2024-03-01", wantTime: "10:00:00", wantOK: true},
		{name: "negative_offset", in: "2024-03-01T10:00:00-05:00", wantDate: "2024-03-01", wantTime: "10:00:00", wantOK: true},
		{name: "zulu", in: "2024-03-01T23:59:59Z", wantDate: "2024-03-01", wantTime: "23:59:59", wantOK: true},
		{name: "no_offset", in: "2024-03-01T08:00:00", wantDate: "2024-03-01", wantTime: "08:00:00", wantOK: true},
		{name: "fractional_zulu", in: "2024-03-01T08:00:00.123Z", wantDate: "2024-03-01", wantTime: "08:00:00.123", wantOK: true},
		{name: "no_separator", in: "2024-03-01 10:00:00", wantDate: "2024-03-01 10:00:00", wantTime: "", wantOK: false},
		{name: "empty", in: "", wantDate: "", wantTime: "", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, tm, ok := SplitMessageDate(tc.in)
			if d != tc.wantDate || tm != tc.wantTime || ok != tc.wantOK {
				t.Fatalf("SplitMessageDate(%q)=(%q,%q,%v), want (%q,%q,%v)",
					tc.in, d, tm, ok, tc.wantDate, tc.wantTime, tc.wantOK)
			}
		})
	}
}
