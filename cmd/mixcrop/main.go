package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"mixcrop/internal/config"
	"mixcrop/internal/coupling"
	"mixcrop/internal/export"
	"mixcrop/internal/record"
	"mixcrop/internal/setup"
	_ "mixcrop/internal/sims/cereal"
	_ "mixcrop/internal/sims/legume"
	_ "mixcrop/internal/sims/rampant"
	"mixcrop/internal/telemetry"
)

// options are the command-line parameters of a headless run.
type options struct {
	Config       string
	Steps        int
	Seed         int64
	Record       string
	RecordDriver string
	Export       string
	Run          string
	MetricsAddr  string
	LogFormat    string
	LogLevel     string
}

func (o *options) Bind(fs *flag.FlagSet) {
	fs.StringVar(&o.Config, "config", o.Config, "YAML run file (defaults when empty)")
	fs.IntVar(&o.Steps, "steps", o.Steps, "number of coupled steps (overrides the run file)")
	fs.Int64Var(&o.Seed, "seed", o.Seed, "seed for plant positions (overrides the run file)")
	fs.StringVar(&o.Record, "record", o.Record, "step store: sqlite path or pgx DSN")
	fs.StringVar(&o.RecordDriver, "record-driver", o.RecordDriver, "step store driver (sqlite, pgx)")
	fs.StringVar(&o.Export, "export", o.Export, "export target: fs:<dir> or s3://bucket/prefix")
	fs.StringVar(&o.Run, "run", o.Run, "run identifier used by the store and the export")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&o.LogFormat, "log-format", o.LogFormat, "log format (text, json)")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level (debug, info, warn, error)")
}

// overrides collects the flags set on the command line as config keys.
func overrides(fs *flag.FlagSet, o options) map[string]string {
	out := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "steps", "seed", "record", "export":
			out[f.Name] = f.Value.String()
		case "record-driver":
			out["record_driver"] = o.RecordDriver
		}
	})
	return out
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	hopts := &slog.HandlerOptions{Level: lv}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

func main() {
	opts := options{LogFormat: "text", LogLevel: "info", Run: time.Now().UTC().Format("20060102T150405Z")}
	opts.Bind(flag.CommandLine)
	flag.Parse()

	if err := run(opts, overrides(flag.CommandLine, opts)); err != nil {
		log.Fatal(err)
	}
}

func run(opts options, over map[string]string) error {
	logger, err := newLogger(opts.LogFormat, opts.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	cfg.FromMap(over)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metrics := telemetry.New()
	if opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	var recorder coupling.Recorder
	if cfg.Record.DSN != "" {
		store, err := record.Open(ctx, cfg.Record.Driver, cfg.Record.DSN, opts.Run)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	r, err := setup.Build(cfg, setup.Options{Logger: logger, Observer: metrics, Recorder: recorder})
	if err != nil {
		return err
	}
	runErr := r.Simulation.Run(ctx, cfg.Steps)

	// completed steps are exported even when the run stops early
	if cfg.Export.Target != "" {
		if err := exportSteps(context.Background(), cfg.Export.Target, opts.Run, r.Simulation.Reports()); err != nil {
			logger.Warn("export failed", "target", cfg.Export.Target, "err", err)
		}
	}
	if runErr != nil {
		var pe *coupling.PhaseError
		if errors.As(runErr, &pe) {
			logger.Error("step failed", "t", pe.Step, "phase", pe.Phase, "instance", pe.Instance, "err", pe.Err)
		}
		return runErr
	}
	logger.Info("run complete", "run", opts.Run, "steps", len(r.Simulation.Reports()))
	return nil
}

func exportSteps(ctx context.Context, target, runID string, reports []coupling.StepReport) error {
	sink, err := export.Open(ctx, target)
	if err != nil {
		return err
	}
	return export.Steps(ctx, sink, runID, reports)
}
