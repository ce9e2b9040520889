package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"boxy/internal/diagfmt"
	"boxy/internal/observ"
	"boxy/internal/pipeline"
)

// buildReport summarizes a build for machines: what was meshed, what was
// skipped and why, and where the time went.
type buildReport struct {
	Script      string                   `json:"script" yaml:"script"`
	State       string                   `json:"state" yaml:"state"`
	Cached      bool                     `json:"cached" yaml:"cached"`
	Empty       bool                     `json:"empty" yaml:"empty"`
	Outputs     []string                 `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Objects     []objectReport           `json:"objects" yaml:"objects"`
	Skipped     []string                 `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Diagnostics []diagfmt.DiagnosticJSON `json:"diagnostics" yaml:"diagnostics"`
	Timings     observ.Report            `json:"timings" yaml:"timings"`
}

type objectReport struct {
	Name      string     `json:"name" yaml:"name"`
	Material  string     `json:"material" yaml:"material"`
	Fallback  bool       `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Vertices  int        `json:"vertices" yaml:"vertices"`
	Triangles int        `json:"triangles" yaml:"triangles"`
	Volume    float64    `json:"volume" yaml:"volume"`
	Min       [3]float64 `json:"min" yaml:"min"`
	Max       [3]float64 `json:"max" yaml:"max"`
}

func newBuildReport(script string, res *pipeline.Result, outputs []string) buildReport {
	r := buildReport{
		Script:  script,
		State:   res.State.String(),
		Cached:  res.Cached,
		Empty:   res.Empty,
		Outputs: outputs,
		Objects: make([]objectReport, 0, len(res.Scene.Meshes)),
		Skipped: res.Skipped,
		Timings: res.Report,
	}
	for _, fm := range res.Scene.Meshes {
		b := fm.Mesh.Bounds()
		r.Objects = append(r.Objects, objectReport{
			Name:      fm.Name,
			Material:  fm.Material,
			Fallback:  fm.Fallback,
			Vertices:  len(fm.Mesh.Positions),
			Triangles: len(fm.Mesh.Triangles),
			Volume:    fm.Mesh.Volume(),
			Min:       [3]float64{b.Min.X, b.Min.Y, b.Min.Z},
			Max:       [3]float64{b.Max.X, b.Max.Y, b.Max.Z},
		})
	}
	out := diagfmt.BuildDiagnosticsOutput(res.Bag, res.Files, diagfmt.JSONOpts{PathMode: diagfmt.PathModeRelative, IncludeNotes: true})
	r.Diagnostics = out.Diagnostics
	if r.Diagnostics == nil {
		r.Diagnostics = []diagfmt.DiagnosticJSON{}
	}
	return r
}

func encodeReport(w io.Writer, r buildReport, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml", "yml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported report format %q (expected json|yaml)", format)
	}
}

// writeReport writes to path, or to w when path is "" or "-".
func writeReport(w io.Writer, path string, r buildReport, format string) error {
	if path == "" || path == "-" {
		return encodeReport(w, r, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := encodeReport(f, r, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
