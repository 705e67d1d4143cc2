package model

import (
	"time"
)

// RiskFlag marks a concern the planner attaches to an execution plan.
type RiskFlag string

const (
	// RiskCost flags a plan whose cost exceeds 80% of the remaining budget.
	RiskCost RiskFlag = "COST_RISK"
	// RiskResource flags a plan whose footprint exceeds the fixed ceiling.
	RiskResource RiskFlag = "RESOURCE_RISK"
	// RiskTiming flags a plan whose total duration exceeds the tick period.
	RiskTiming RiskFlag = "TIMING_RISK"
)

// PlannedTask is one admitted, resource-bounded unit of the execution plan.
type PlannedTask struct {
	CategoryID    string
	BatchSize     int
	EstimatedCost float64
	Footprint     ResourceFootprint
	// StartOffset staggers the task's start relative to dispatch to avoid a
	// thundering herd.
	StartOffset time.Duration
	// DependsOn lists category ids that must run before this task.
	DependsOn []string
	// ExecutionOrder is the 1-based rank assigned from the scheduler's ordering.
	ExecutionOrder       int
	Priority             float64
	PredictedSuccessRate float64
	EstimatedDuration    time.Duration
}

// ExecutionPlan is the ordered, resource-bounded output of one planning pass.
// It exists only for the duration of one tick.
type ExecutionPlan struct {
	Tasks []*PlannedTask
	// Aggregate resource totals across all tasks.
	TotalMemoryMB float64
	TotalCalls    float64
	TotalCost     float64
	TotalDuration time.Duration
	// EfficiencyScore is taskCount/totalCost; higher is better.
	EfficiencyScore float64
	RiskFlags       []RiskFlag
}

// Empty reports whether the plan carries no tasks.
func (p *ExecutionPlan) Empty() bool {
	return p == nil || len(p.Tasks) == 0
}

// HasRisk reports whether the given flag is attached to the plan.
func (p *ExecutionPlan) HasRisk(flag RiskFlag) bool {
	for _, f := range p.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}
