package model

import (
	"time"
)

// CategoryKind selects the batch-size heuristic for a work category.
type CategoryKind string

const (
	// CategoryKindGeneration marks generation-heavy categories; batch = min(max, backlog/5).
	CategoryKindGeneration CategoryKind = "generation"
	// CategoryKindLightweight marks cheap categories; batch = min(max, backlog).
	CategoryKindLightweight CategoryKind = "lightweight"
	// CategoryKindAggregator marks categories that summarize others and depend on them.
	CategoryKindAggregator CategoryKind = "aggregator"
)

// WorkCategory is the static configuration of one class of generation work.
// Loaded at startup and immutable during a tick.
type WorkCategory struct {
	ID           string
	BaseInterval time.Duration
	BasePriority float64
	MaxBatchSize int
	CostPerItem  float64
	// SuccessFloor is the minimum acceptable predicted success rate.
	SuccessFloor float64
	Kind         CategoryKind
	// Aggregates lists the category ids this category summarizes.
	Aggregates []string
	// Per-item static footprint multipliers.
	MemoryPerItemMB float64
	CallsPerItem    float64
	SecondsPerItem  float64
	// Pools lists the resource pool names this category consumes.
	Pools []string
}

// FootprintFor computes the static resource footprint for a batch of the given size.
func (c *WorkCategory) FootprintFor(batchSize int) ResourceFootprint {
	n := float64(batchSize)
	return ResourceFootprint{
		MemoryMB:      c.MemoryPerItemMB * n,
		ExternalCalls: c.CallsPerItem * n,
		Cost:          c.CostPerItem * n,
	}
}

// EstimatedDurationFor computes the estimated execution duration for a batch.
func (c *WorkCategory) EstimatedDurationFor(batchSize int) time.Duration {
	return time.Duration(c.SecondsPerItem*float64(batchSize)) * time.Second
}

// ConsumesPool reports whether the category draws on the named resource pool.
func (c *WorkCategory) ConsumesPool(name string) bool {
	for _, p := range c.Pools {
		if p == name {
			return true
		}
	}
	return false
}
