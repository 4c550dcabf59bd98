package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	lowestTrackableMs  = 1
	highestTrackableMs = int64(10 * time.Minute / time.Millisecond)
	significantFigures = 4
)

// Collector aggregates the samples of one concurrency level. It is safe for
// concurrent use.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	samples      int64
	sumMs        int64
	failures     int64
	failByKind   map[string]int64
	errorsByType map[string]int64
}

// Stats represents the aggregated samples of one level. MeanMs is only
// meaningful when Samples > 0.
type Stats struct {
	Samples  int64 `json:"samples"`
	Failures int64 `json:"failures"`

	MeanMs float64 `json:"mean_ms"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`

	FailuresByKind map[string]int `json:"failures_by_kind,omitempty"`
	Errors         map[string]int `json:"errors,omitempty"`
}

// Empty reports whether no navigation produced a sample.
func (s Stats) Empty() bool {
	return s.Samples == 0
}

func NewCollector() *Collector {
	// Samples are whole milliseconds; 4 significant figures keeps values
	// below ~16s exact.
	h := hdrhistogram.New(lowestTrackableMs, highestTrackableMs, significantFigures)
	return &Collector{
		hist:         h,
		failByKind:   make(map[string]int64),
		errorsByType: make(map[string]int64),
	}
}

// RecordSample records one successful navigation. The duration is truncated
// to whole milliseconds; negative durations count as zero.
func (c *Collector) RecordSample(elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples++
	c.sumMs += ms

	v := ms
	if v < c.hist.LowestTrackableValue() {
		v = c.hist.LowestTrackableValue()
	}
	if v > c.hist.HighestTrackableValue() {
		v = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(v)
}

// RecordFailure records a navigation that produced no sample.
func (c *Collector) RecordFailure(kind string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.failByKind[kind]++
	c.errorsByType[errorLabel(err)]++
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Samples:  c.samples,
		Failures: c.failures,
	}

	if c.samples > 0 {
		stats.MeanMs = float64(c.sumMs) / float64(c.samples)
		stats.MinMs = c.hist.Min()
		stats.MaxMs = c.hist.Max()
		// The histogram clamps to 1ms; the exact sum can tell a 0ms run apart.
		if c.sumMs == 0 {
			stats.MinMs, stats.MaxMs = 0, 0
		}
	}

	if len(c.failByKind) > 0 {
		stats.FailuresByKind = make(map[string]int, len(c.failByKind))
		for k, v := range c.failByKind {
			stats.FailuresByKind[k] = int(v)
		}
	}
	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

// FormatMs renders a millisecond value in its shortest decimal form, so an
// exact mean of 200 prints as "200" and 233.5 as "233.5".
func FormatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const maxLabelLen = 80

func errorLabel(err error) string {
	switch {
	case err == nil:
		return "Unknown error"
	case errors.Is(err, context.DeadlineExceeded):
		return "Navigation timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	}

	// Plain and fmt-wrapped errors carry no useful type; label them by the
	// innermost typed error or, failing that, by message.
	for {
		typeName := fmt.Sprintf("%T", err)
		switch typeName {
		case "*fmt.wrapError":
			if inner := errors.Unwrap(err); inner != nil {
				err = inner
				continue
			}
			return truncateLabel(err.Error())
		case "*fmt.wrapErrors", "*errors.errorString":
			return truncateLabel(err.Error())
		}
		return FriendlyErrorName(typeName)
	}
}

func truncateLabel(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLabelLen {
		return s
	}
	return s[:maxLabelLen] + "..."
}

// LevelResult is the outcome of sampling one concurrency level.
type LevelResult struct {
	Concurrency int           `json:"users"`
	Repetitions int           `json:"repetitions"`
	Timestamp   time.Time     `json:"timestamp"`
	Elapsed     time.Duration `json:"-"`
	ElapsedMs   float64       `json:"elapsed_ms"`
	Stats
}

// Progress is a point-in-time view of a running sweep.
type Progress struct {
	Concurrency int
	Round       int // 1-based; 0 before the first round starts
	Rounds      int
	Completed   int64
	Failed      int64
}

// Expected returns the number of navigations the level will attempt.
func (p Progress) Expected() int64 {
	return int64(p.Concurrency) * int64(p.Rounds)
}

// ProgressSource is implemented by anything that can report sweep progress.
type ProgressSource interface {
	Progress() Progress
}
