package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Build information, overridden with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "majority",
		Short: "Rank survey options by majority judgment",
		Long: `majority reads graded survey responses and ranks the options of every
question by their majority grade, breaking ties the way majority judgment
prescribes. Input is a wide CSV table with one column per "question [option]".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("majority version {{.Version}}\n")

	root.AddCommand(newRankCmd(), newCompareCmd(), newVersionCmd())
	return root
}

// newLogger returns a text logger on w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
