package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/loadsweep/internal/metrics"
)

// PrintLevelSummary writes the console line for a level that produced samples.
func PrintLevelSummary(w io.Writer, res metrics.LevelResult) {
	fmt.Fprintf(w, "Average loading time for %d users over %d iterations: %s ms\n",
		res.Concurrency, res.Repetitions, metrics.FormatMs(res.MeanMs))
}

// PrintEmptyLevelWarning reports a level where every navigation failed.
func PrintEmptyLevelWarning(w io.Writer, res metrics.LevelResult) {
	fmt.Fprintf(w, "WARNING: all %d navigations failed for %d users over %d iterations; no row written\n",
		res.Failures, res.Concurrency, res.Repetitions)
}

// SweepReport is the machine-readable summary printed with --json-output.
type SweepReport struct {
	SweepID     string                `json:"sweep_id"`
	Target      string                `json:"target"`
	Engine      string                `json:"engine"`
	Output      string                `json:"output"`
	Repetitions int                   `json:"repetitions"`
	StartedAt   time.Time             `json:"started_at"`
	DurationMs  float64               `json:"duration_ms"`
	Levels      []metrics.LevelResult `json:"levels"`
	Error       string                `json:"error,omitempty"`
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report SweepReport) error {
	if report.Levels == nil {
		report.Levels = []metrics.LevelResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
