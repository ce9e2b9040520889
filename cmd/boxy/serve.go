package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"boxy/internal/pipeline"
	"boxy/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [script|dir]",
		Short: "Serve a live preview that recompiles on change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
	cmd.Flags().String("addr", server.DefaultAddr, "listen address")
	cmd.Flags().Duration("debounce", server.DefaultDebounce, "quiet period before a change is announced")
	addCompileFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if quiet(cmd) {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	req := s.request(cmd)
	srv := server.New(&server.Spec{
		Addr:      s.Addr,
		Script:    s.Script,
		Compiler:  pipeline.NewCompiler(*req),
		Materials: s.Materials,
		Debounce:  debounce,
		Log:       logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
