package model

import (
	"time"
)

// AlertSeverity tiers operator alerts.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Alert is a threshold-crossing event raised by the monitor and delivered to the
// operator notification channel. Alerts of the same type are deduplicated
// against currently open alerts rather than duplicated.
type Alert struct {
	ID       string
	Type     string
	Severity AlertSeverity
	Category string
	Message  string
	// MetricValue is the observed value that crossed Threshold.
	MetricValue float64
	Threshold   float64
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// NewAlert creates an open alert.
func NewAlert(alertType string, severity AlertSeverity, category, message string, metricValue, threshold float64) *Alert {
	return &Alert{
		ID:          NewID(),
		Type:        alertType,
		Severity:    severity,
		Category:    category,
		Message:     message,
		MetricValue: metricValue,
		Threshold:   threshold,
		CreatedAt:   time.Now(),
	}
}

// Open reports whether the alert has not been resolved yet.
func (a *Alert) Open() bool {
	return a.ResolvedAt == nil
}

// Resolve closes the alert at the given time.
func (a *Alert) Resolve(at time.Time) {
	resolved := at
	a.ResolvedAt = &resolved
}

// Recommendation is an advisory mitigation proposed by the monitor or the
// admission controller. Recommendations are never applied automatically.
type Recommendation struct {
	ID        string
	Category  string
	Action    string
	Reason    string
	CreatedAt time.Time
}

// NewRecommendation creates an advisory recommendation.
func NewRecommendation(category, action, reason string) *Recommendation {
	return &Recommendation{
		ID:        NewID(),
		Category:  category,
		Action:    action,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}

// ResourceUsageSample is a write-once, time-stamped snapshot of one pool's
// counters, read by dashboards.
type ResourceUsageSample struct {
	ID          string
	PoolName    string
	Used        float64
	Capacity    float64
	Utilization float64
	SampledAt   time.Time
}

// NewUsageSample snapshots the given pool at `at`.
func NewUsageSample(pool *ResourcePool, at time.Time) *ResourceUsageSample {
	return &ResourceUsageSample{
		ID:          NewID(),
		PoolName:    pool.Name,
		Used:        pool.Used,
		Capacity:    pool.Capacity,
		Utilization: pool.Utilization(),
		SampledAt:   at,
	}
}

// TickResult summarizes one coordinator tick for the caller and for audit.
type TickResult struct {
	WorkerID   string
	StartedAt  time.Time
	FinishedAt time.Time
	// FinalState is the state-machine phase the tick ended in.
	FinalState CoordinatorState
	// HealthStatus is the health gate verdict for this tick.
	HealthStatus string
	// Skipped is set when the tick did not run the pipeline (gate stop,
	// cooldown, or single-flight rejection) and names the reason.
	Skipped         string
	Candidates      int
	FeasibleTasks   int
	DispatchedTasks int
	PlanCost        float64
	RiskFlags       []RiskFlag
	Err             error
}
