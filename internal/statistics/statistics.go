package statistics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Run contains the statistics of a single resize.
type Run struct {
	InputPath  string
	OutputPath string
	Format     string
	Resampler  string

	InputFileSize int64
	OriginalSize  int64 // original raster encoded in the output format
	TargetBytes   float64
	FinalSize     int64

	OriginalWidth  int
	OriginalHeight int
	FinalWidth     int
	FinalHeight    int
	Iterations     int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// NewRun returns a Run started now.
func NewRun(inputPath string) *Run {
	return &Run{InputPath: inputPath, StartTime: time.Now()}
}

// Finalize records the end time and duration.
func (r *Run) Finalize() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// PercentSaved returns how much smaller the result is than the input file.
func (r *Run) PercentSaved() float64 {
	if r.InputFileSize <= 0 {
		return 0
	}
	return float64(r.InputFileSize-r.FinalSize) * 100 / float64(r.InputFileSize)
}

// Scale returns the final linear scale relative to the original width.
func (r *Run) Scale() float64 {
	if r.OriginalWidth == 0 {
		return 0
	}
	return float64(r.FinalWidth) / float64(r.OriginalWidth)
}

// GetSummary returns a formatted summary of the run.
func (r *Run) GetSummary() string {
	return fmt.Sprintf(`Resize Summary:

Files:
		Input: %s
		Output: %s
		Format: %s

Sizes:
		Input File: %s
		Original Encoded: %s
		Target: %s
		Final: %s
		Saved: %.1f%%

Dimensions:
		Original: %dx%d
		Final: %dx%d
		Scale: %.3f

Convergence:
		Iterations: %d
		Resampler: %s
		Duration: %v`,
		r.InputPath,
		r.OutputPath,
		r.Format,
		humanize.IBytes(uint64(max(r.InputFileSize, 0))),
		humanize.IBytes(uint64(max(r.OriginalSize, 0))),
		humanize.IBytes(uint64(max(r.TargetBytes, 0))),
		humanize.IBytes(uint64(max(r.FinalSize, 0))),
		r.PercentSaved(),
		r.OriginalWidth, r.OriginalHeight,
		r.FinalWidth, r.FinalHeight,
		r.Scale(),
		r.Iterations,
		r.Resampler,
		r.Duration.Round(time.Millisecond))
}

// Totals aggregates runs served by a long-lived process.
type Totals struct {
	Requests      int64
	Succeeded     int64
	Failed        int64
	NonConverged  int64
	Iterations    int64
	BytesIn       int64
	BytesOut      int64
	StartTime     time.Time
	lastErrorsMux sync.RWMutex
	lastErrors    []StatError
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string    `json:"file_path"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a point-in-time copy of Totals suitable for JSON.
type Snapshot struct {
	Requests     int64       `json:"requests"`
	Succeeded    int64       `json:"succeeded"`
	Failed       int64       `json:"failed"`
	NonConverged int64       `json:"non_converged"`
	Iterations   int64       `json:"iterations"`
	BytesIn      int64       `json:"bytes_in"`
	BytesOut     int64       `json:"bytes_out"`
	Uptime       string      `json:"uptime"`
	LastErrors   []StatError `json:"last_errors"`
}

const maxKeptErrors = 10

// NewTotals returns a new Totals instance.
func NewTotals() *Totals {
	return &Totals{StartTime: time.Now()}
}

// IncrementRequests increases the request count by 1.
func (t *Totals) IncrementRequests() {
	atomic.AddInt64(&t.Requests, 1)
}

// RecordSuccess adds a finished run to the totals.
func (t *Totals) RecordSuccess(r *Run) {
	atomic.AddInt64(&t.Succeeded, 1)
	atomic.AddInt64(&t.Iterations, int64(r.Iterations))
	atomic.AddInt64(&t.BytesIn, r.InputFileSize)
	atomic.AddInt64(&t.BytesOut, r.FinalSize)
}

// RecordFailure counts a failed run and keeps the most recent errors.
func (t *Totals) RecordFailure(filePath, operation string, err error, nonConverged bool) {
	atomic.AddInt64(&t.Failed, 1)
	if nonConverged {
		atomic.AddInt64(&t.NonConverged, 1)
	}

	t.lastErrorsMux.Lock()
	defer t.lastErrorsMux.Unlock()
	t.lastErrors = append(t.lastErrors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
	if len(t.lastErrors) > maxKeptErrors {
		t.lastErrors = t.lastErrors[len(t.lastErrors)-maxKeptErrors:]
	}
}

// Snapshot returns the current totals.
func (t *Totals) Snapshot() Snapshot {
	t.lastErrorsMux.RLock()
	errs := make([]StatError, len(t.lastErrors))
	copy(errs, t.lastErrors)
	t.lastErrorsMux.RUnlock()

	return Snapshot{
		Requests:     atomic.LoadInt64(&t.Requests),
		Succeeded:    atomic.LoadInt64(&t.Succeeded),
		Failed:       atomic.LoadInt64(&t.Failed),
		NonConverged: atomic.LoadInt64(&t.NonConverged),
		Iterations:   atomic.LoadInt64(&t.Iterations),
		BytesIn:      atomic.LoadInt64(&t.BytesIn),
		BytesOut:     atomic.LoadInt64(&t.BytesOut),
		Uptime:       time.Since(t.StartTime).Round(time.Second).String(),
		LastErrors:   errs,
	}
}

// GetErrorSummary returns a summary of the most recent errors.
func (t *Totals) GetErrorSummary() string {
	s := t.Snapshot()
	if len(s.LastErrors) == 0 {
		return "No errors occurred during processing"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Errors (%d total):\n", s.Failed)
	for _, err := range s.LastErrors {
		fmt.Fprintf(&b, "  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return b.String()
}
