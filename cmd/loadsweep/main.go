package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/torosent/loadsweep/internal/browser"
	"github.com/torosent/loadsweep/internal/config"
	"github.com/torosent/loadsweep/internal/logging"
	"github.com/torosent/loadsweep/internal/output"
	"github.com/torosent/loadsweep/internal/resultlog"
	"github.com/torosent/loadsweep/internal/runner"
	"github.com/torosent/loadsweep/internal/tracing"
)

const (
	progressInterval = 500 * time.Millisecond
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if cfg.PrintConfig {
		return cfg.WriteYAML(stdout)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: stderr,
	})
	if err != nil {
		return err
	}
	sweepID := ulid.Make().String()
	entry := logger.WithField("sweep_id", sweepID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			entry.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	launcher, err := browser.New(ctx, cfg, browser.Options{Propagate: tp.ShouldPropagate()})
	if err != nil {
		return err
	}

	reporter := logging.NewFailureReporter(entry, !cfg.LogErrors)
	sampler, err := runner.NewSampler(runner.Options{
		Target:            cfg.TargetURL,
		Launcher:          launcher,
		NavigationTimeout: cfg.NavigationTimeout,
		Reporter:          reporter,
		Tracer:            tp.Tracer(),
		Logger:            entry,
	})
	if err != nil {
		return err
	}

	resultLog, err := resultlog.Open(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer resultLog.Close()

	// Keep stdout machine-readable when the JSON report is requested.
	summaryOut := stdout
	if cfg.JSONOutput {
		summaryOut = stderr
	}

	var progress *output.ProgressReporter
	var status runner.StatusLine
	if showProgress(cfg, stderr) {
		progress = output.NewProgressReporter(sampler, progressInterval, stderr)
		progress.Start()
		defer progress.Stop()
		status = progress
	}

	sweep, err := runner.NewSweep(runner.SweepOptions{
		Sampler: sampler,
		Log:     resultLog,
		SweepID: sweepID,
		Target:  cfg.TargetURL,
		Engine:  string(cfg.Engine),
		Stdout:  summaryOut,
		Stderr:  stderr,
		Status:  status,
		Tracer:  tp.Tracer(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	entry.WithFields(log.Fields{
		"target":      cfg.TargetURL,
		"levels":      cfg.Levels,
		"repetitions": cfg.Repetitions,
		"engine":      cfg.Engine,
		"output":      resultLog.Path(),
	}).Info("sweep started")

	startedAt := time.Now()
	results, runErr := sweep.Run(ctx, cfg.Levels, cfg.Repetitions)
	if progress != nil {
		progress.Stop()
	}

	if cfg.JSONOutput {
		report := output.SweepReport{
			SweepID:     sweepID,
			Target:      cfg.TargetURL,
			Engine:      string(cfg.Engine),
			Output:      resultLog.Path(),
			Repetitions: cfg.Repetitions,
			StartedAt:   startedAt,
			DurationMs:  float64(time.Since(startedAt)) / float64(time.Millisecond),
			Levels:      results,
		}
		if runErr != nil {
			report.Error = runErr.Error()
		}
		if err := output.PrintJSONReport(stdout, report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	entry.WithFields(log.Fields{
		"levels":   len(results),
		"failures": reporter.Total(),
		"duration": time.Since(startedAt).Round(time.Millisecond).String(),
	}).Info("sweep complete")
	return nil
}

// showProgress honors an explicit --progress setting and otherwise draws the
// status line only when stderr is a terminal.
func showProgress(cfg *config.Config, stderr io.Writer) bool {
	if cfg.Progress != nil {
		return *cfg.Progress
	}
	f, ok := stderr.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
