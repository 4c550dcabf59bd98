// Package logging builds the process logger and the navigation failure reporter.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/torosent/loadsweep/internal/runner"
)

// Options configure New.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

// New returns a logger writing to stderr unless Output is set.
func New(opts Options) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}

	level := strings.TrimSpace(opts.Level)
	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(parsed)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format %q is not supported", opts.Format)
	}
	return logger, nil
}

// FailureReporter logs navigation failures and counts them per kind.
type FailureReporter struct {
	entry  log.FieldLogger
	quiet  bool
	mu     sync.Mutex
	counts map[runner.FailureKind]int
}

// NewFailureReporter returns a reporter that logs through entry. When quiet is
// true failures are only counted.
func NewFailureReporter(entry log.FieldLogger, quiet bool) *FailureReporter {
	return &FailureReporter{
		entry:  entry,
		quiet:  quiet,
		counts: make(map[runner.FailureKind]int),
	}
}

func (r *FailureReporter) ReportFailure(f runner.Failure) {
	r.mu.Lock()
	r.counts[f.Kind]++
	r.mu.Unlock()

	if r.quiet || r.entry == nil {
		return
	}
	r.entry.WithError(f.Err).WithFields(log.Fields{
		"users":  f.Concurrency,
		"round":  f.Round + 1,
		"client": f.Client,
		"kind":   string(f.Kind),
	}).Warn("navigation failed")
}

// Count returns how many failures of kind were reported.
func (r *FailureReporter) Count(kind runner.FailureKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

// Total returns the number of failures reported so far.
func (r *FailureReporter) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.counts {
		total += n
	}
	return total
}
