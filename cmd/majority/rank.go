package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahrav/majority/infrastructure/ingest"
	"github.com/ahrav/majority/infrastructure/middleware"
	"github.com/ahrav/majority/infrastructure/report"
	"github.com/ahrav/majority/internal/application"
	"github.com/ahrav/majority/internal/domain"
	"github.com/ahrav/majority/internal/ports"
)

type rankOptions struct {
	configPath    string
	threshold     float64
	repair        bool
	verbose       bool
	workers       int
	format        string
	metricsAddr   string
	delimiter     string
	caseSensitive bool
}

func newRankCmd() *cobra.Command {
	opts := &rankOptions{}

	cmd := &cobra.Command{
		Use:   "rank [file.csv]",
		Short: "Rank the options of every question in a survey table",
		Long: `rank reads a wide CSV survey table, from a file or "-" for stdin, and
prints the majority judgment ranking of every question.

Flags override the matching values of the --config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runRank(cmd, opts, input)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML engine configuration file")
	f.Float64VarP(&opts.threshold, "threshold", "t", 50, "majority threshold percentage in (0, 100]")
	f.BoolVar(&opts.repair, "repair", true, "reconcile the ranking with the exact comparator (threshold 50 only)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every option's grade and enable debug logging")
	f.IntVarP(&opts.workers, "workers", "w", 0, "questions ranked concurrently (0 = number of CPUs)")
	f.StringVarP(&opts.format, "format", "f", string(report.FormatTable), "output format (table, json, yaml)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while ranking")
	f.StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	f.BoolVar(&opts.caseSensitive, "case-sensitive", false, "match grade labels case-sensitively")
	return cmd
}

func runRank(cmd *cobra.Command, opts *rankOptions, input string) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	var metrics ports.MetricsCollector = ports.NopMetrics{}
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = middleware.NewPrometheusMetrics(reg)
		shutdown, err := serveMetrics(cmd.Context(), opts.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	engine, err := application.NewEngine(cfg,
		application.WithLogger(logger),
		application.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	scale := engine.Scale()
	readOpts := ingest.DefaultOptions()
	readOpts.CaseSensitive = opts.caseSensitive
	d := []rune(opts.delimiter)
	if len(d) != 1 {
		return fmt.Errorf("--delimiter must be a single character, got %q", opts.delimiter)
	}
	readOpts.Comma = d[0]

	store, err := readInput(cmd.InOrStdin(), input, scale, readOpts)
	if err != nil {
		return err
	}

	reports, err := engine.RankAll(cmd.Context(), store)
	if err != nil {
		return err
	}

	w, err := report.NewWriter(format, scale, report.WithColors(cfg.Scale.Colors))
	if err != nil {
		return err
	}
	return w.Write(cmd.OutOrStdout(), reports)
}

// resolveConfig loads --config, or the defaults, and applies every flag
// the user set explicitly.
func resolveConfig(cmd *cobra.Command, opts *rankOptions) (application.EngineConfig, error) {
	cfg := application.DefaultEngineConfig()
	if opts.configPath != "" {
		loader, err := application.NewConfigLoader()
		if err != nil {
			return cfg, err
		}
		if cfg, err = loader.LoadFromFile(opts.configPath); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.Threshold = opts.threshold
	}
	if f.Changed("repair") {
		cfg.Repair = opts.repair
	}
	if f.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if f.Changed("workers") {
		cfg.Workers = opts.workers
	}
	return cfg, nil
}

func readInput(stdin io.Reader, input string, scale domain.GradeScale, opts ingest.Options) (*domain.EvaluationStore, error) {
	r := stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open survey: %w", err)
		}
		defer f.Close()
		r = f
	}

	store, err := ingest.ReadWide(r, scale, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey %s: %w", input, err)
	}
	return store, nil
}

// serveMetrics exposes reg on addr until the returned shutdown is called.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
