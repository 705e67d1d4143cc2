package model

import (
	"time"
)

// ResourceType identifies a tracked shared resource.
type ResourceType string

const (
	ResourceTypeQuota       ResourceType = "quota"
	ResourceTypeBudget      ResourceType = "budget"
	ResourceTypeMemory      ResourceType = "memory"
	ResourceTypeConnections ResourceType = "connections"
)

// PoolStatus is the derived health of a resource pool. It is computed from the
// pool's counters and never stored authoritatively.
type PoolStatus string

const (
	PoolStatusHealthy     PoolStatus = "HEALTHY"
	PoolStatusWarning     PoolStatus = "WARNING"
	PoolStatusCritical    PoolStatus = "CRITICAL"
	PoolStatusUnavailable PoolStatus = "UNAVAILABLE"
)

// maxConsecutiveErrors is the error streak after which a pool is considered unavailable.
const maxConsecutiveErrors = 5

// ResourcePool tracks usage against capacity for one shared constrained resource.
// Reservation updates must go through single-writer-per-pool semantics; see the
// repository implementations.
type ResourcePool struct {
	Name     string
	Type     ResourceType
	Used     float64
	Capacity float64
	// SoftLimitPct is the utilization fraction above which the pool is WARNING.
	SoftLimitPct float64
	// HardLimitPct is the utilization fraction above which the pool is CRITICAL.
	HardLimitPct float64
	// BurstAllowance is extra headroom a reservation may consume beyond capacity.
	BurstAllowance    float64
	ConsecutiveErrors int
	Available         bool
	Version           int
	LastUpdated       time.Time
}

// NewResourcePool creates a pool with the default 70%/90% soft/hard limits.
func NewResourcePool(name string, rtype ResourceType, capacity float64, burstAllowance float64) *ResourcePool {
	return &ResourcePool{
		Name:           name,
		Type:           rtype,
		Capacity:       capacity,
		SoftLimitPct:   0.7,
		HardLimitPct:   0.9,
		BurstAllowance: burstAllowance,
		Available:      true,
		LastUpdated:    time.Now(),
	}
}

// Utilization returns used/capacity, or 1 when the pool has no capacity.
func (p *ResourcePool) Utilization() float64 {
	if p.Capacity <= 0 {
		return 1
	}
	return p.Used / p.Capacity
}

// Status derives the pool health. Unavailability dominates, then critical, then warning.
func (p *ResourcePool) Status() PoolStatus {
	if !p.Available || p.ConsecutiveErrors >= maxConsecutiveErrors {
		return PoolStatusUnavailable
	}
	u := p.Utilization()
	switch {
	case u > p.HardLimitPct:
		return PoolStatusCritical
	case u > p.SoftLimitPct:
		return PoolStatusWarning
	default:
		return PoolStatusHealthy
	}
}

// Remaining returns the headroom left before capacity (burst excluded).
func (p *ResourcePool) Remaining() float64 {
	r := p.Capacity - p.Used
	if r < 0 {
		return 0
	}
	return r
}

// CanReserve reports whether reserving `amount` stays within capacity plus burst.
func (p *ResourcePool) CanReserve(amount float64) bool {
	return p.Used+amount <= p.Capacity+p.BurstAllowance
}

// Reserve consumes headroom. Callers must have checked CanReserve under the
// pool's writer lock; Reserve itself only applies the arithmetic.
func (p *ResourcePool) Reserve(amount float64) {
	p.Used += amount
	p.LastUpdated = time.Now()
}

// Release returns previously reserved headroom, clamped at zero.
func (p *ResourcePool) Release(amount float64) {
	p.Used -= amount
	if p.Used < 0 {
		p.Used = 0
	}
	p.LastUpdated = time.Now()
}

// Snapshot returns a copy for consistent reads during planning. Admission and
// planning work on the snapshot; only the reservation step writes back.
func (p *ResourcePool) Snapshot() ResourcePool {
	return *p
}
