// Package main implements the boxy CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"boxy/internal/version"
)

// newRootCmd assembles the command tree. The returned finish func flushes the
// tracer and must run after Execute, whether or not it failed.
func newRootCmd() (*cobra.Command, func()) {
	var cleanupTrace, cleanupProfile func()

	root := &cobra.Command{
		Use:           "boxy",
		Short:         "Scriptable solid modeling to GLB, OBJ and STL",
		Long:          `boxy runs scene scripts that build solids and exports the registered objects as meshes.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyColorFlag(cmd); err != nil {
				return err
			}
			cleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			cleanupTrace = cleanup
			if cleanupProfile, err = setupProfiling(cmd); err != nil {
				return err
			}
			return nil
		},
	}

	root.AddCommand(newBuildCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newVersionCmd())

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to keep")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
	flags.Duration("trace-heartbeat", 0*time.Second, "emit a heartbeat event at this interval (0 disables)")
	finish := func() {
		if cleanupProfile != nil {
			cleanupProfile()
			cleanupProfile = nil
		}
		if cleanupTrace != nil {
			cleanupTrace()
			cleanupTrace = nil
		}
	}
	return root, finish
}

// main executes the root command and exits with status 1 on error.
func main() {
	root, finish := newRootCmd()
	err := root.Execute()
	finish()
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}

func applyColorFlag(cmd *cobra.Command) error {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch value {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		if !isTerminal(os.Stdout) {
			color.NoColor = true
		}
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	return nil
}

func useColor(cmd *cobra.Command) bool {
	value, _ := cmd.Root().PersistentFlags().GetString("color")
	return value == "on" || (value == "auto" && isTerminal(os.Stderr))
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
