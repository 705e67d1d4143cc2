package model

import (
	"fmt"
	"time"
)

// SchedulingCandidate is the per-tick scheduling verdict for one category.
// Produced by the priority scheduler, consumed and discarded within the tick.
type SchedulingCandidate struct {
	CategoryID           string
	Priority             float64
	ShouldExecute        bool
	BatchSize            int
	EstimatedCost        float64
	EstimatedDuration    time.Duration
	PredictedSuccessRate float64
	// Reasoning is the mandatory trace explaining why the category did or did
	// not qualify; operators rely on it.
	Reasoning ReasonList
}

// AddReason appends a formatted entry to the reasoning trace.
func (sc *SchedulingCandidate) AddReason(format string, args ...interface{}) {
	sc.Reasoning = append(sc.Reasoning, fmt.Sprintf(format, args...))
}

// CostEfficiency returns cost divided by predicted success rate, the ranking
// tie-breaker. A lower value wins.
func (sc *SchedulingCandidate) CostEfficiency() float64 {
	if sc.PredictedSuccessRate <= 0 {
		return sc.EstimatedCost * 1e9
	}
	return sc.EstimatedCost / sc.PredictedSuccessRate
}
