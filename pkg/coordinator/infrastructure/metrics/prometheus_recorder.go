package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Tick metrics
	tickDurationSeconds *prometheus.HistogramVec
	tickCounter         *prometheus.CounterVec
	tickDispatched      prometheus.Histogram
	tickPlanCost        prometheus.Histogram

	// Execution metrics
	dispatchCounter          *prometheus.CounterVec
	executionOutcomeCounter  *prometheus.CounterVec
	executionDurationSeconds *prometheus.HistogramVec
	executionCost            *prometheus.HistogramVec

	// Queue metrics
	queueClaimCounter   *prometheus.CounterVec
	queueOutcomeCounter *prometheus.CounterVec

	// Pool metrics
	poolUtilization *prometheus.GaugeVec
	poolUsed        *prometheus.GaugeVec

	// Alert metrics
	alertCounter *prometheus.CounterVec

	// Generic named durations
	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() metrics.MetricRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		tickDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pacer_tick_duration_seconds",
			Help:    "Duration of coordinator ticks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"final_state", "health_status"}),
		tickCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_tick_total",
			Help: "Total number of coordinator ticks by outcome.",
		}, []string{"outcome"}),
		tickDispatched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pacer_tick_dispatched_tasks",
			Help:    "Number of tasks dispatched per tick.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		tickPlanCost: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pacer_tick_plan_cost",
			Help:    "Estimated total cost of the execution plan per tick.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		dispatchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_dispatch_total",
			Help: "Total number of execution records dispatched by category.",
		}, []string{"category"}),
		executionOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_execution_outcome_total",
			Help: "Total number of execution records reaching a terminal status.",
		}, []string{"category", "status"}),
		executionDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pacer_execution_duration_seconds",
			Help:    "Duration of executions from dispatch to terminal status.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"category", "status"}),
		executionCost: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pacer_execution_cost",
			Help:    "Actual cost of completed executions.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"category"}),
		queueClaimCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_queue_claim_total",
			Help: "Total number of successful queue item claims.",
		}, []string{"category"}),
		queueOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_queue_outcome_total",
			Help: "Total number of queue item outcomes by status.",
		}, []string{"category", "status"}),
		poolUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pacer_pool_utilization_ratio",
			Help: "Current used/capacity ratio per resource pool.",
		}, []string{"pool", "type"}),
		poolUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pacer_pool_used",
			Help: "Current used amount per resource pool.",
		}, []string{"pool", "type"}),
		alertCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_alert_total",
			Help: "Total number of alerts raised by type and severity.",
		}, []string{"type", "severity"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pacer_operation_duration_seconds",
			Help:    "Duration of named internal operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	registry.MustRegister(r.tickDurationSeconds)
	registry.MustRegister(r.tickCounter)
	registry.MustRegister(r.tickDispatched)
	registry.MustRegister(r.tickPlanCost)
	registry.MustRegister(r.dispatchCounter)
	registry.MustRegister(r.executionOutcomeCounter)
	registry.MustRegister(r.executionDurationSeconds)
	registry.MustRegister(r.executionCost)
	registry.MustRegister(r.queueClaimCounter)
	registry.MustRegister(r.queueOutcomeCounter)
	registry.MustRegister(r.poolUtilization)
	registry.MustRegister(r.poolUsed)
	registry.MustRegister(r.alertCounter)
	registry.MustRegister(r.operationDurationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordTickStart records the start of a coordinator tick.
func (r *PrometheusRecorder) RecordTickStart(ctx context.Context, workerID string) {
	logger.Debugf("Metrics: tick started by worker '%s'.", workerID)
}

// RecordTickEnd records the end of a coordinator tick with its result.
func (r *PrometheusRecorder) RecordTickEnd(ctx context.Context, result *model.TickResult) {
	if result == nil {
		return
	}
	outcome := "completed"
	switch {
	case result.Err != nil:
		outcome = "fault"
	case result.Skipped != "":
		outcome = "skipped"
	}
	r.tickCounter.WithLabelValues(outcome).Inc()

	if result.Skipped != "" {
		return
	}
	duration := result.FinishedAt.Sub(result.StartedAt).Seconds()
	r.tickDurationSeconds.WithLabelValues(result.FinalState.String(), result.HealthStatus).Observe(duration)
	r.tickDispatched.Observe(float64(result.DispatchedTasks))
	r.tickPlanCost.Observe(result.PlanCost)
}

// RecordDispatch records one execution record handed off to the executor.
func (r *PrometheusRecorder) RecordDispatch(ctx context.Context, record *model.ExecutionRecord) {
	r.dispatchCounter.WithLabelValues(record.Category).Inc()
}

// RecordExecutionOutcome records a record reaching a terminal status.
func (r *PrometheusRecorder) RecordExecutionOutcome(ctx context.Context, record *model.ExecutionRecord) {
	status := record.Status.String()
	r.executionOutcomeCounter.WithLabelValues(record.Category, status).Inc()
	r.executionDurationSeconds.WithLabelValues(record.Category, status).Observe(record.Duration().Seconds())
	if record.Status == model.ExecutionStatusCompleted {
		r.executionCost.WithLabelValues(record.Category).Observe(record.CostActual)
	}
}

// RecordQueueClaim records a successful queue item claim.
func (r *PrometheusRecorder) RecordQueueClaim(ctx context.Context, item *model.QueueItem) {
	r.queueClaimCounter.WithLabelValues(item.Category).Inc()
}

// RecordQueueOutcome records a queue item outcome.
func (r *PrometheusRecorder) RecordQueueOutcome(ctx context.Context, item *model.QueueItem) {
	r.queueOutcomeCounter.WithLabelValues(item.Category, item.Status.String()).Inc()
}

// RecordPoolUtilization records the current utilization of one pool.
func (r *PrometheusRecorder) RecordPoolUtilization(ctx context.Context, pool *model.ResourcePool) {
	r.poolUtilization.WithLabelValues(pool.Name, string(pool.Type)).Set(pool.Utilization())
	r.poolUsed.WithLabelValues(pool.Name, string(pool.Type)).Set(pool.Used)
}

// RecordAlert records an alert being raised.
func (r *PrometheusRecorder) RecordAlert(ctx context.Context, alert *model.Alert) {
	r.alertCounter.WithLabelValues(alert.Type, string(alert.Severity)).Inc()
}

// RecordDuration records a generic named duration.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
