package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/loadsweep/internal/metrics"
)

const clearLine = "\r\x1b[K"

// ProgressReporter redraws a single status line with the sweep's progress.
type ProgressReporter struct {
	source   metrics.ProgressSource
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time

	mu    sync.Mutex
	drawn bool
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(source metrics.ProgressSource, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		source:   source,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and erases the status line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		p.Clear()
	}
}

// Clear erases the status line so other output starts on a clean line. The
// next tick redraws it.
func (p *ProgressReporter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprint(p.writer, clearLine)
		p.drawn = false
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			p.draw(FormatProgress(p.source.Progress(), time.Since(p.start)))
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) draw(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.writer, clearLine+line)
	p.drawn = true
}

// FormatProgress renders one status line.
func FormatProgress(pr metrics.Progress, elapsed time.Duration) string {
	if pr.Concurrency == 0 {
		return fmt.Sprintf("Starting... | Elapsed: %s", elapsed.Truncate(time.Second))
	}
	return fmt.Sprintf("Users: %d | Round: %d/%d | Navigations: %d/%d | Failed: %d | Elapsed: %s",
		pr.Concurrency, pr.Round, pr.Rounds, pr.Completed, pr.Expected(), pr.Failed,
		elapsed.Truncate(time.Second))
}
