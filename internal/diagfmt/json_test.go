package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONOutput(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeRelative, IncludeNotes: true}); err != nil {
		t.Fatal(err)
	}
	var got DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	want := DiagnosticsOutput{
		Count: 2,
		Diagnostics: []DiagnosticJSON{
			{
				Severity: "ERROR",
				Code:     "SCR1002",
				Message:  "unknown func nosuch",
				Location: LocationJSON{File: "scenes/lamp.boxy", Line: 3},
				Notes: []NoteJSON{{
					Message:  "registered before the error",
					Location: LocationJSON{File: "scenes/lamp.boxy", Line: 2},
				}},
			},
			{
				Severity: "WARNING",
				Code:     "KRN3001",
				Message:  "mesh is empty",
				Object:   "shade",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := sampleBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("Max not applied: %+v", out)
	}
	if out.Diagnostics[0].Notes != nil {
		t.Errorf("notes included without IncludeNotes")
	}
}
