package monitor

import (
	"sync"
	"time"
)

// retention bounds the in-memory outcome history; the largest rolling window
// is one hour.
const retention = time.Hour

// outcome is one observed terminal execution, kept only for window aggregation.
type outcome struct {
	at       time.Time
	category string
	success  bool
	duration time.Duration
	cost     float64
}

// WindowStats aggregates outcomes of one category over one rolling window.
type WindowStats struct {
	Category     string
	Window       time.Duration
	Throughput   int
	SuccessRate  float64
	MeanDuration time.Duration
	ErrorCount   int
	Cost         float64
}

// outcomeWindow is a concurrency-safe pruned list of recent outcomes.
type outcomeWindow struct {
	mu       sync.Mutex
	outcomes []outcome
}

// add records one outcome and prunes entries older than the retention bound.
func (w *outcomeWindow) add(o outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outcomes = append(w.outcomes, o)
	w.prune(o.at)
}

// prune drops entries older than retention relative to `now`. Caller holds the lock.
func (w *outcomeWindow) prune(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(w.outcomes) && w.outcomes[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.outcomes = append(w.outcomes[:0], w.outcomes[i:]...)
	}
}

// stats aggregates one category over the trailing `window` ending at `now`.
func (w *outcomeWindow) stats(category string, window time.Duration, now time.Time) WindowStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := WindowStats{Category: category, Window: window}
	cutoff := now.Add(-window)
	var totalDuration time.Duration
	succeeded := 0
	for _, o := range w.outcomes {
		if o.category != category || o.at.Before(cutoff) {
			continue
		}
		s.Throughput++
		s.Cost += o.cost
		totalDuration += o.duration
		if o.success {
			succeeded++
		} else {
			s.ErrorCount++
		}
	}
	if s.Throughput > 0 {
		s.SuccessRate = float64(succeeded) / float64(s.Throughput)
		s.MeanDuration = totalDuration / time.Duration(s.Throughput)
	}
	return s
}

// categories returns the distinct category ids present in the window.
func (w *outcomeWindow) categories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, o := range w.outcomes {
		if _, ok := seen[o.category]; !ok {
			seen[o.category] = struct{}{}
			out = append(out, o.category)
		}
	}
	return out
}
