package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/loadsweep/internal/metrics"
	"github.com/torosent/loadsweep/internal/output"
	"github.com/torosent/loadsweep/internal/resultlog"
	"github.com/torosent/loadsweep/internal/tracing"
)

// LevelSampler measures one concurrency level.
type LevelSampler interface {
	Run(ctx context.Context, concurrency, repetitions int) (metrics.LevelResult, error)
}

// RowAppender persists one summary row per measured level.
type RowAppender interface {
	Append(row resultlog.Row) error
}

// StatusLine is a transient terminal line that must be erased before
// regular output is written.
type StatusLine interface {
	Clear()
}

// SweepOptions configure a Sweep.
type SweepOptions struct {
	Sampler LevelSampler // required
	Log     RowAppender  // required
	SweepID string
	Target  string
	Engine  string
	Stdout  io.Writer
	Stderr  io.Writer
	Status  StatusLine
	Clock   clockwork.Clock
	Tracer  trace.Tracer
	Logger  log.FieldLogger
}

// Sweep runs the sampler over a list of concurrency levels, one after the
// other, and records a summary row for every level that produced samples.
type Sweep struct {
	opt SweepOptions
}

func NewSweep(opt SweepOptions) (*Sweep, error) {
	if opt.Sampler == nil {
		return nil, errors.New("runner: sampler is required")
	}
	if opt.Log == nil {
		return nil, errors.New("runner: result log is required")
	}
	if opt.Stdout == nil {
		opt.Stdout = io.Discard
	}
	if opt.Stderr == nil {
		opt.Stderr = io.Discard
	}
	if opt.Clock == nil {
		opt.Clock = clockwork.NewRealClock()
	}
	if opt.Tracer == nil {
		opt.Tracer = noop.NewTracerProvider().Tracer("loadsweep")
	}
	if opt.Logger == nil {
		opt.Logger = discardLogger()
	}
	return &Sweep{opt: opt}, nil
}

// Run samples each level in order. Levels where every navigation failed get
// a warning and no row. A failed append aborts the sweep; so does ctx being
// canceled, in which case the interrupted level is discarded. The results of
// every completed level are returned either way.
func (s *Sweep) Run(ctx context.Context, levels []int, repetitions int) (results []metrics.LevelResult, err error) {
	ctx, span := tracing.StartSweepSpan(ctx, s.opt.Tracer, s.opt.SweepID, s.opt.Target, s.opt.Engine, levels)
	defer func() { tracing.EndSpan(span, err) }()

	logger := s.opt.Logger
	if s.opt.SweepID != "" {
		logger = logger.WithField("sweep_id", s.opt.SweepID)
	}

	results = make([]metrics.LevelResult, 0, len(levels))
	for _, users := range levels {
		levelLog := logger.WithField("users", users)
		levelLog.WithField("repetitions", repetitions).Debug("level started")

		res, err := s.opt.Sampler.Run(ctx, users, repetitions)
		if err != nil {
			return results, err
		}
		res.Timestamp = s.opt.Clock.Now()
		results = append(results, res)

		s.clearStatus()
		if res.Empty() {
			output.PrintEmptyLevelWarning(s.opt.Stderr, res)
			levelLog.WithField("failures", res.Failures).Warn("level produced no samples, no row written")
			continue
		}

		output.PrintLevelSummary(s.opt.Stdout, res)
		row := resultlog.Row{Timestamp: res.Timestamp, Users: users, AvgMs: res.MeanMs}
		if err := s.opt.Log.Append(row); err != nil {
			return results, fmt.Errorf("append result for %d users: %w", users, err)
		}

		levelLog.WithFields(log.Fields{
			"samples":  res.Samples,
			"failures": res.Failures,
			"mean_ms":  res.MeanMs,
			"min_ms":   res.MinMs,
			"max_ms":   res.MaxMs,
		}).Debug("level recorded")
	}
	return results, nil
}

func (s *Sweep) clearStatus() {
	if s.opt.Status != nil {
		s.opt.Status.Clear()
	}
}
