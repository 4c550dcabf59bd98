package runner

import (
	"errors"
	"fmt"
)

// ErrInvalidLevel is returned when a level asks for fewer than one user or
// fewer than one round.
var ErrInvalidLevel = errors.New("concurrency and repetitions must be >= 1")

// FailureKind classifies why a navigation produced no sample.
type FailureKind string

const (
	// FailureAcquire means no browser session could be launched.
	FailureAcquire FailureKind = "acquire"
	// FailureNavigate means the page failed to load or timed out.
	FailureNavigate FailureKind = "navigate"
)

// Failure describes one simulated user whose navigation produced no sample.
type Failure struct {
	Concurrency int
	Round       int // 0-based
	Client      int // 0-based
	Kind        FailureKind
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s failed (users=%d round=%d client=%d): %v",
		f.Kind, f.Concurrency, f.Round+1, f.Client, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// FailureReporter receives failures as they happen. Implementations must be
// safe for concurrent use; every client of a round reports from its own
// goroutine.
type FailureReporter interface {
	ReportFailure(f Failure)
}

// FailureReporterFunc adapts a function to FailureReporter.
type FailureReporterFunc func(f Failure)

func (fn FailureReporterFunc) ReportFailure(f Failure) {
	fn(f)
}

type nopReporter struct{}

func (nopReporter) ReportFailure(Failure) {}
