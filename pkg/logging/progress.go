package logging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mfaulds/ct-ingest/pkg/humanfmt"
)

// ProgressTracker tracks per-object progress for an ingestion run with ETA
// calculation. It is safe for concurrent use by pipeline workers.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	phase     string

	// Moving average of recent object durations drives the ETA.
	mu              sync.Mutex
	recentDurations []time.Duration
	maxRecent       int
}

// NewProgressTracker creates a new progress tracker for total objects.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:           total,
		startTime:       time.Now(),
		log:             log,
		phase:           phase,
		recentDurations: make([]time.Duration, 0, 10),
		maxRecent:       10,
	}
}

// RecordCompletion records that an object completed, with its duration and
// downloaded byte count.
func (pt *ProgressTracker) RecordCompletion(d time.Duration, bytes int64) {
	pt.completed.Add(1)
	pt.bytes.Add(bytes)

	pt.mu.Lock()
	if len(pt.recentDurations) >= pt.maxRecent {
		pt.recentDurations = pt.recentDurations[1:]
	}
	pt.recentDurations = append(pt.recentDurations, d)
	pt.mu.Unlock()
}

// RecordFailure records that an object failed terminally.
func (pt *ProgressTracker) RecordFailure() {
	pt.failed.Add(1)
}

// Progress returns current progress stats.
func (pt *ProgressTracker) Progress() (completed, failed, total int64) {
	return pt.completed.Load(), pt.failed.Load(), pt.total
}

// Bytes returns total bytes recorded so far.
func (pt *ProgressTracker) Bytes() int64 {
	return pt.bytes.Load()
}

// ProgressPct returns the progress percentage (0-100).
func (pt *ProgressTracker) ProgressPct() float64 {
	done := pt.completed.Load() + pt.failed.Load()
	if pt.total == 0 {
		return 100.0
	}
	return float64(done) * 100.0 / float64(pt.total)
}

// ETA returns the estimated time remaining based on recent completion rate.
func (pt *ProgressTracker) ETA() time.Duration {
	completed := pt.completed.Load()
	if completed == 0 {
		return 0
	}

	remaining := pt.total - completed - pt.failed.Load()
	if remaining <= 0 {
		return 0
	}

	pt.mu.Lock()
	var avgDuration time.Duration
	if len(pt.recentDurations) > 0 {
		var sum time.Duration
		for _, d := range pt.recentDurations {
			sum += d
		}
		avgDuration = sum / time.Duration(len(pt.recentDurations))
	} else {
		elapsed := time.Since(pt.startTime)
		avgDuration = elapsed / time.Duration(completed)
	}
	pt.mu.Unlock()

	return avgDuration * time.Duration(remaining)
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// Remaining returns how many objects are still outstanding.
func (pt *ProgressTracker) Remaining() int64 {
	return pt.total - pt.completed.Load() - pt.failed.Load()
}

// LogProgress emits one progress line with counts, throughput, and ETA.
func (pt *ProgressTracker) LogProgress() {
	completed, failed, total := pt.Progress()
	elapsed := pt.Elapsed()
	bytes := pt.Bytes()

	pt.log.Info().
		Str("phase", pt.phase).
		Int64("completed", completed).
		Int64("failed", failed).
		Int64("total", total).
		Str("pct", humanfmt.Percent(pt.ProgressPct())).
		Str("downloaded", humanfmt.Bytes(bytes)).
		Str("throughput", humanfmt.Throughput(bytes, elapsed)).
		Str("elapsed", humanfmt.Duration(elapsed)).
		Str("eta", humanfmt.Duration(pt.ETA())).
		Msg("progress")
}
