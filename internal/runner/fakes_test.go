package runner_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/torosent/loadsweep/internal/browser"
	"github.com/torosent/loadsweep/internal/runner"
)

// fakeSession runs navigate (when set) and counts closes.
type fakeSession struct {
	navigate func(ctx context.Context) error
	closes   atomic.Int32
	onClose  func()
}

func (s *fakeSession) Navigate(ctx context.Context, target string) error {
	if s.navigate == nil {
		return nil
	}
	return s.navigate(ctx)
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// fakeLauncher hands out sessions built by make, numbering launches from 1
// in the order they happen.
type fakeLauncher struct {
	mu       sync.Mutex
	launched int
	sessions []*fakeSession
	make     func(n int) (*fakeSession, error)
}

func (l *fakeLauncher) Launch(ctx context.Context) (browser.Session, error) {
	l.mu.Lock()
	l.launched++
	n := l.launched
	l.mu.Unlock()

	s, err := l.make(n)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

func (l *fakeLauncher) all() []*fakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeSession(nil), l.sessions...)
}

// recordingReporter keeps every reported failure.
type recordingReporter struct {
	mu       sync.Mutex
	failures []runner.Failure
}

func (r *recordingReporter) ReportFailure(f runner.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *recordingReporter) all() []runner.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runner.Failure(nil), r.failures...)
}
