package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/torosent/loadsweep/internal/metrics"
	"github.com/torosent/loadsweep/internal/tracing"
)

// Sampler measures one concurrency level: each round launches one isolated
// session per simulated user, navigates all of them at once and waits for
// every user before the next round starts.
type Sampler struct {
	opt Options

	users     atomic.Int64
	round     atomic.Int64
	rounds    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// outcome is what one simulated user hands back to its round. Exactly one of
// elapsed and err is meaningful. canceled marks a failure that happened while
// the sweep was being canceled.
type outcome struct {
	elapsed  time.Duration
	kind     FailureKind
	err      error
	canceled bool
}

func NewSampler(opt Options) (*Sampler, error) {
	if opt.Launcher == nil {
		return nil, errors.New("runner: launcher is required")
	}
	if opt.Target == "" {
		return nil, errors.New("runner: target is required")
	}
	opt.normalize()
	return &Sampler{opt: opt}, nil
}

// Run performs repetitions rounds of concurrency simultaneous navigations and
// aggregates the samples. Failed navigations are reported and excluded from
// the mean. When ctx is canceled no new round starts and ctx.Err() is
// returned along with whatever was measured. A level whose rounds all finished
// without losing a navigation to the cancellation is returned without error.
func (s *Sampler) Run(ctx context.Context, concurrency, repetitions int) (metrics.LevelResult, error) {
	if concurrency < 1 || repetitions < 1 {
		return metrics.LevelResult{}, fmt.Errorf("%w: users=%d repetitions=%d", ErrInvalidLevel, concurrency, repetitions)
	}

	ctx, span := tracing.StartLevelSpan(ctx, s.opt.Tracer, concurrency, repetitions)
	s.resetProgress(concurrency, repetitions)

	collector := metrics.NewCollector()
	start := s.opt.Clock.Now()

	var err error
	interrupted := false
	for round := 0; round < repetitions; round++ {
		if err = ctx.Err(); err != nil {
			break
		}
		s.round.Store(int64(round + 1))

		for _, o := range s.runRound(ctx, concurrency, round) {
			interrupted = interrupted || o.canceled
			if o.err != nil {
				collector.RecordFailure(string(o.kind), o.err)
				continue
			}
			collector.RecordSample(o.elapsed)
		}

		s.opt.Logger.WithFields(log.Fields{
			"users": concurrency,
			"round": round + 1,
		}).Debug("round complete")
	}
	if err == nil && interrupted {
		err = ctx.Err()
	}

	elapsed := s.opt.Clock.Since(start)
	result := metrics.LevelResult{
		Concurrency: concurrency,
		Repetitions: repetitions,
		Elapsed:     elapsed,
		ElapsedMs:   float64(elapsed) / float64(time.Millisecond),
		Stats:       collector.Stats(),
	}

	tracing.EndSpan(span, err,
		tracing.AttrSamples.Int64(result.Samples),
		tracing.AttrFailures.Int64(result.Failures),
		tracing.AttrMeanMs.Float64(result.MeanMs),
	)
	return result, err
}

func (s *Sampler) runRound(ctx context.Context, concurrency, round int) []outcome {
	outcomes := make([]outcome, concurrency)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for client := 0; client < concurrency; client++ {
		go func() {
			defer wg.Done()
			outcomes[client] = s.visit(ctx, concurrency, round, client)
		}()
	}
	wg.Wait()

	return outcomes
}

// visit is one simulated user: launch a session, time a single navigation,
// close the session. The session is closed on every path, panics included.
func (s *Sampler) visit(ctx context.Context, concurrency, round, client int) (out outcome) {
	ctx, span := tracing.StartNavigationSpan(ctx, s.opt.Tracer, s.opt.Target, round+1, client)
	stage := FailureAcquire

	defer func() {
		if r := recover(); r != nil {
			out = outcome{kind: stage, err: fmt.Errorf("panic: %v", r)}
		}
		out.canceled = out.err != nil && ctx.Err() != nil
		s.record(ctx, Failure{
			Concurrency: concurrency,
			Round:       round,
			Client:      client,
			Kind:        out.kind,
			Err:         out.err,
		})
		tracing.EndSpan(span, out.err)
	}()

	session, err := s.opt.Launcher.Launch(ctx)
	if err != nil {
		return outcome{kind: FailureAcquire, err: err}
	}
	stage = FailureNavigate
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.opt.Logger.WithError(cerr).WithFields(log.Fields{
				"users":  concurrency,
				"round":  round + 1,
				"client": client,
			}).Debug("session close failed")
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, s.opt.NavigationTimeout)
	defer cancel()

	begin := s.opt.Clock.Now()
	if err := session.Navigate(navCtx, s.opt.Target); err != nil {
		return outcome{kind: FailureNavigate, err: err}
	}
	return outcome{elapsed: s.opt.Clock.Since(begin)}
}

// record updates progress and reports failures. Failures caused by the sweep
// being canceled are counted but not reported.
func (s *Sampler) record(ctx context.Context, f Failure) {
	s.completed.Add(1)
	if f.Err == nil {
		return
	}
	s.failed.Add(1)
	if ctx.Err() != nil {
		return
	}
	s.opt.Reporter.ReportFailure(f)
}

func (s *Sampler) resetProgress(concurrency, repetitions int) {
	s.users.Store(int64(concurrency))
	s.round.Store(0)
	s.rounds.Store(int64(repetitions))
	s.completed.Store(0)
	s.failed.Store(0)
}

// Progress reports the level currently being sampled.
func (s *Sampler) Progress() metrics.Progress {
	return metrics.Progress{
		Concurrency: int(s.users.Load()),
		Round:       int(s.round.Load()),
		Rounds:      int(s.rounds.Load()),
		Completed:   s.completed.Load(),
		Failed:      s.failed.Load(),
	}
}
