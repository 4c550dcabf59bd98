package runner_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/torosent/loadsweep/internal/metrics"
	"github.com/torosent/loadsweep/internal/resultlog"
	"github.com/torosent/loadsweep/internal/runner"
	"github.com/torosent/loadsweep/internal/tracing"
)

var sweepStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type sweepHarness struct {
	sweep  *runner.Sweep
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	hook   *logtest.Hook
	path   string
}

func newSweepHarness(t *testing.T, sampler runner.LevelSampler, appender runner.RowAppender) *sweepHarness {
	t.Helper()
	h := &sweepHarness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		path:   filepath.Join(t.TempDir(), "loading_times.csv"),
	}
	if appender == nil {
		rl, err := resultlog.Open(h.path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = rl.Close() })
		appender = rl
	}

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	h.hook = hook

	sweep, err := runner.NewSweep(runner.SweepOptions{
		Sampler: sampler,
		Log:     appender,
		SweepID: "01HZY3K8J7W5V0P9Q2R4T6X8ZA",
		Target:  target,
		Stdout:  h.stdout,
		Stderr:  h.stderr,
		Clock:   clockwork.NewFakeClockAt(sweepStart),
		Logger:  logger,
	})
	require.NoError(t, err)
	h.sweep = sweep
	return h
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func succeedingLauncher() *fakeLauncher {
	return &fakeLauncher{make: func(int) (*fakeSession, error) {
		return &fakeSession{}, nil
	}}
}

func TestNewSweepRequiresSamplerAndLog(t *testing.T) {
	_, err := runner.NewSweep(runner.SweepOptions{Log: &failingAppender{}})
	assert.Error(t, err)
	_, err = runner.NewSweep(runner.SweepOptions{Sampler: &scriptedSampler{}})
	assert.Error(t, err)
}

func TestSweepWritesHeaderOnceAcrossLevels(t *testing.T) {
	// A clock that never advances makes every sample exactly 0ms.
	s := newSampler(t, runner.Options{Launcher: succeedingLauncher(), Clock: clockwork.NewFakeClock()})
	h := newSweepHarness(t, s, nil)

	results, err := h.sweep.Run(context.Background(), []int{1, 2, 3}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	records := readCSV(t, h.path)
	require.Len(t, records, 4)
	assert.Equal(t, resultlog.Header, records[0])
	for i, users := range []string{"1", "2", "3"} {
		assert.Equal(t, "2024-06-01T09:00:00Z", records[i+1][0])
		assert.Equal(t, users, records[i+1][1])
		assert.Equal(t, "0", records[i+1][2])
	}

	lines := strings.Split(strings.TrimSpace(h.stdout.String()), "\n")
	assert.Equal(t, []string{
		"Average loading time for 1 users over 2 iterations: 0 ms",
		"Average loading time for 2 users over 2 iterations: 0 ms",
		"Average loading time for 3 users over 2 iterations: 0 ms",
	}, lines)
	assert.Empty(t, h.stderr.String())
}

func TestSweepAllFailingLevelWritesNoRow(t *testing.T) {
	launcher := &fakeLauncher{make: func(int) (*fakeSession, error) {
		return &fakeSession{navigate: func(context.Context) error {
			return errors.New("net::ERR_NAME_NOT_RESOLVED")
		}}, nil
	}}
	s := newSampler(t, runner.Options{Launcher: launcher})
	h := newSweepHarness(t, s, nil)

	results, err := h.sweep.Run(context.Background(), []int{3}, 2)
	require.NoError(t, err, "navigation failures never fail the sweep")
	require.Len(t, results, 1)
	assert.True(t, results[0].Empty())
	assert.Equal(t, int64(6), results[0].Failures)

	_, statErr := os.Stat(h.path)
	assert.True(t, os.IsNotExist(statErr), "no row and no header for an empty level")
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), "WARNING: all 6 navigations failed for 3 users over 2 iterations")

	var warned bool
	for _, e := range h.hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warned = true
			assert.Equal(t, 3, e.Data["users"])
			assert.Equal(t, "01HZY3K8J7W5V0P9Q2R4T6X8ZA", e.Data["sweep_id"])
		}
	}
	assert.True(t, warned, "expected a warning log entry")
}

func TestSweepEmptyLevelDoesNotStopLaterLevels(t *testing.T) {
	sampler := &scriptedSampler{results: map[int]metrics.LevelResult{
		1: {Concurrency: 1, Repetitions: 1, Stats: metrics.Stats{Failures: 1}},
		2: {Concurrency: 2, Repetitions: 1, Stats: metrics.Stats{Samples: 2, MeanMs: 233.5}},
	}}
	h := newSweepHarness(t, sampler, nil)

	results, err := h.sweep.Run(context.Background(), []int{1, 2}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []int{1, 2}, sampler.calls)

	records := readCSV(t, h.path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2024-06-01T09:00:00Z", "2", "233.5"}, records[1])
}

func TestSweepAppendFailureAborts(t *testing.T) {
	sampler := &scriptedSampler{results: map[int]metrics.LevelResult{
		5:  {Concurrency: 5, Repetitions: 1, Stats: metrics.Stats{Samples: 5, MeanMs: 10}},
		10: {Concurrency: 10, Repetitions: 1, Stats: metrics.Stats{Samples: 10, MeanMs: 20}},
	}}
	appendErr := errors.New("disk full")
	h := newSweepHarness(t, sampler, &failingAppender{err: appendErr})

	results, err := h.sweep.Run(context.Background(), []int{5, 10}, 1)
	require.ErrorIs(t, err, appendErr)
	assert.Len(t, results, 1)
	assert.Equal(t, []int{5}, sampler.calls, "no level runs after a failed append")
}

func TestSweepCancellationDiscardsInterruptedLevel(t *testing.T) {
	sampler := &scriptedSampler{
		results: map[int]metrics.LevelResult{
			1: {Concurrency: 1, Repetitions: 1, Stats: metrics.Stats{Samples: 1, MeanMs: 50}},
		},
		errs: map[int]error{2: context.Canceled},
	}
	h := newSweepHarness(t, sampler, nil)

	results, err := h.sweep.Run(context.Background(), []int{1, 2, 3}, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
	assert.Equal(t, []int{1, 2}, sampler.calls)

	records := readCSV(t, h.path)
	assert.Len(t, records, 2, "header plus the completed level only")
}

func TestSweepRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := tp.Tracer("test")

	s := newSampler(t, runner.Options{Launcher: succeedingLauncher(), Tracer: tracer})
	rl, err := resultlog.Open(filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)
	defer rl.Close()

	sweep, err := runner.NewSweep(runner.SweepOptions{Sampler: s, Log: rl, Tracer: tracer, Engine: "chrome"})
	require.NoError(t, err)

	_, err = sweep.Run(context.Background(), []int{2, 3}, 2)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, span := range exporter.GetSpans() {
		counts[span.Name]++
		if span.Name == "sweep" {
			assert.Contains(t, span.Attributes, tracing.AttrEngine.String("chrome"))
		}
	}
	assert.Equal(t, map[string]int{"sweep": 1, "level": 2, "navigate": 10}, counts)
}

type clearCounter struct{ n int }

func (c *clearCounter) Clear() { c.n++ }

func TestSweepClearsStatusLineBeforePrinting(t *testing.T) {
	sampler := &scriptedSampler{results: map[int]metrics.LevelResult{
		1: {Concurrency: 1, Repetitions: 1, Stats: metrics.Stats{Samples: 1, MeanMs: 1}},
		2: {Concurrency: 2, Repetitions: 1, Stats: metrics.Stats{Failures: 2}},
	}}
	rl, err := resultlog.Open(filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)
	defer rl.Close()

	status := &clearCounter{}
	sweep, err := runner.NewSweep(runner.SweepOptions{Sampler: sampler, Log: rl, Status: status})
	require.NoError(t, err)

	_, err = sweep.Run(context.Background(), []int{1, 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, status.n)
}

// scriptedSampler returns canned results per level and records the order in
// which levels were requested.
type scriptedSampler struct {
	results map[int]metrics.LevelResult
	errs    map[int]error
	calls   []int
}

func (s *scriptedSampler) Run(ctx context.Context, concurrency, repetitions int) (metrics.LevelResult, error) {
	s.calls = append(s.calls, concurrency)
	if err := s.errs[concurrency]; err != nil {
		return metrics.LevelResult{}, err
	}
	return s.results[concurrency], nil
}

type failingAppender struct {
	err error
}

func (a *failingAppender) Append(resultlog.Row) error {
	return a.err
}
