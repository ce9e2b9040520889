package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"boxy/internal/diag"
	"boxy/internal/diagfmt"
	"boxy/internal/export"
	"boxy/internal/pipeline"
	"boxy/internal/trace"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [script|dir]",
		Short: "Run a scene script and export its objects",
		Long: `Run a scene script and export every registered object.
The output format follows the extension of -o (.glb, .obj or .stl). A '%' in
the output name writes one file per object name, e.g. -o parts/lamp_%.stl.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBuild,
	}
	cmd.Flags().StringP("output", "o", "", "output file (defaults to <script>.glb or the manifest's [build].output)")
	addCompileFlags(cmd)
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().String("report", "", "write a build report (json|yaml)")
	cmd.Flags().String("report-out", "-", "report destination (- for stdout)")
	cmd.Flags().String("path-mode", "auto", "diagnostic path display (auto|absolute|relative|basename)")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	reportFormat, err := cmd.Flags().GetString("report")
	if err != nil {
		return fmt.Errorf("failed to get report flag: %w", err)
	}
	reportOut, err := cmd.Flags().GetString("report-out")
	if err != nil {
		return fmt.Errorf("failed to get report-out flag: %w", err)
	}
	pathModeValue, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	pathMode, ok := diagfmt.ParsePathMode(pathModeValue)
	if !ok {
		return fmt.Errorf("invalid --path-mode value %q", pathModeValue)
	}
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	silent := quiet(cmd)

	ctx, span := trace.Start(cmd.Context(), trace.ScopeDriver, "build")
	defer span.End("")

	req := s.request(cmd)
	// the progress view would interleave with a report on stdout
	reportToStdout := reportFormat != "" && (reportOut == "" || reportOut == "-")
	var res *pipeline.Result
	if !silent && !reportToStdout && shouldUseTUI(mode) {
		res, err = runCompileWithUI(ctx, filepath.Base(s.Script), req)
	} else {
		res, err = pipeline.Compile(ctx, req)
	}
	if err != nil {
		dumpTraceRings(cmd)
		return err
	}

	stderr := cmd.ErrOrStderr()
	res.Bag.Sort()
	if res.Bag.Len() > 0 {
		diagfmt.Pretty(stderr, res.Bag, res.Files, diagfmt.PrettyOpts{
			Color:     useColor(cmd),
			Context:   1,
			PathMode:  pathMode,
			ShowNotes: true,
		})
	}

	exportStart := time.Now()
	written, exportErr := export.WriteFiles(s.Output, res.Scene.Meshes, export.Options{Materials: s.Materials})
	exported := time.Since(exportStart)
	trace.Point(trace.FromContext(ctx), trace.ScopePass, "export", fmt.Sprintf("files=%d", len(written)), span.ID())

	root := filepath.Dir(s.Script)
	if s.Manifest != nil {
		root = s.Manifest.Root
	}
	stdout := cmd.OutOrStdout()
	if !silent {
		for _, p := range written {
			fmt.Fprintf(stdout, "wrote %s\n", formatPathForOutput(root, p))
		}
		if res.Cached {
			fmt.Fprintln(stdout, "meshes served from cache")
		}
	}
	if showTimings {
		printStageTimings(stdout, res.Timings, exported)
		printPhaseReport(stdout, res.Report)
	}
	if reportFormat != "" {
		if err := writeReport(stdout, reportOut, newBuildReport(s.Script, res, written), reportFormat); err != nil {
			return err
		}
	}

	if exportErr != nil {
		dumpTraceRings(cmd)
		return exportErr
	}
	if res.Bag.HasErrors() {
		dumpTraceRings(cmd)
		return fmt.Errorf("build finished with %d error(s)", countErrors(res))
	}
	return nil
}

func countErrors(res *pipeline.Result) int {
	n := 0
	for _, d := range res.Bag.Items() {
		if d.Severity == diag.SevError {
			n++
		}
	}
	return n
}
