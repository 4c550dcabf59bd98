// Package resultlog appends per-level summary rows to the sweep's CSV log.
package resultlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/torosent/loadsweep/internal/metrics"
)

// TimestampLayout is the layout of the Timestamp column. It sorts
// lexicographically for rows written in the same zone.
const TimestampLayout = time.RFC3339

// Header is the first record of every log file.
var Header = []string{"Timestamp", "Users", "Avg_Loading_Time"}

// Row is one level summary.
type Row struct {
	Timestamp time.Time
	Users     int
	AvgMs     float64
}

// Record returns the CSV fields for r.
func (r Row) Record() []string {
	return []string{
		r.Timestamp.Format(TimestampLayout),
		strconv.Itoa(r.Users),
		metrics.FormatMs(r.AvgMs),
	}
}

// Log is an append-only CSV file. The header is written lazily by the first
// Append that finds the file missing or empty, and existing rows are never
// rewritten. A sidecar lock file serializes appends across processes.
type Log struct {
	path string
	lock *flock.Flock
}

// Open prepares a log at path without touching the file itself.
func Open(path string) (*Log, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("result log path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("result log %s is a directory", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create result log directory: %w", err)
		}
	}
	return &Log{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the CSV file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes row, preceded by the header when the file is missing or empty.
// A partial last line left by an interrupted writer is terminated first.
func (l *Log) Append(row Row) (err error) {
	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("lock result log: %w", err)
	}
	defer func() {
		if uerr := l.lock.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("unlock result log: %w", uerr)
		}
	}()

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close result log: %w", cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat result log: %w", err)
	}

	// A writer that died mid-row leaves no trailing newline; end that line so
	// this row starts on its own.
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("read result log: %w", err)
		}
		if last[0] != '\n' {
			if _, err := f.Write([]byte{'\n'}); err != nil {
				return fmt.Errorf("write result log: %w", err)
			}
		}
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write result log header: %w", err)
		}
	}
	if err := w.Write(row.Record()); err != nil {
		return fmt.Errorf("write result log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write result log: %w", err)
	}
	return nil
}

// Close releases the lock file handle. The lock file stays on disk.
func (l *Log) Close() error {
	return l.lock.Close()
}
