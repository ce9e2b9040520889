package main

import (
	"fmt"
	"io"
	"time"

	"boxy/internal/observ"
	"boxy/internal/pipeline"
)

var stageVerbs = map[pipeline.Stage]string{
	pipeline.StageLoad:        "loaded",
	pipeline.StageTriangulate: "triangulated",
	pipeline.StageFinish:      "finished",
	pipeline.StageAssemble:    "assembled",
}

func printStageTimings(out io.Writer, timings pipeline.Timings, exported time.Duration) {
	if out == nil {
		return
	}
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%s %.1f ms\n", stageVerbs[stage], toMillis(timings.Duration(stage)))
	}
	if exported > 0 {
		fmt.Fprintf(out, "exported %.1f ms\n", toMillis(exported))
	}
}

// printPhaseReport lists the fine-grained timer phases, one per line.
func printPhaseReport(out io.Writer, report observ.Report) {
	for _, p := range report.Phases {
		if p.Note != "" {
			fmt.Fprintf(out, "  %-32s %8.2f ms  %s\n", p.Name, p.DurationMS, p.Note)
			continue
		}
		fmt.Fprintf(out, "  %-32s %8.2f ms\n", p.Name, p.DurationMS)
	}
	fmt.Fprintf(out, "  %-32s %8.2f ms\n", "total", report.TotalMS)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
