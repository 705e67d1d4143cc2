package metrics

import (
	"context"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordTickStart does nothing.
func (r *NoOpMetricRecorder) RecordTickStart(ctx context.Context, workerID string) {}

// RecordTickEnd does nothing.
func (r *NoOpMetricRecorder) RecordTickEnd(ctx context.Context, result *model.TickResult) {}

// RecordDispatch does nothing.
func (r *NoOpMetricRecorder) RecordDispatch(ctx context.Context, record *model.ExecutionRecord) {}

// RecordExecutionOutcome does nothing.
func (r *NoOpMetricRecorder) RecordExecutionOutcome(ctx context.Context, record *model.ExecutionRecord) {
}

// RecordQueueClaim does nothing.
func (r *NoOpMetricRecorder) RecordQueueClaim(ctx context.Context, item *model.QueueItem) {}

// RecordQueueOutcome does nothing.
func (r *NoOpMetricRecorder) RecordQueueOutcome(ctx context.Context, item *model.QueueItem) {}

// RecordPoolUtilization does nothing.
func (r *NoOpMetricRecorder) RecordPoolUtilization(ctx context.Context, pool *model.ResourcePool) {}

// RecordAlert does nothing.
func (r *NoOpMetricRecorder) RecordAlert(ctx context.Context, alert *model.Alert) {}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartTickSpan returns the context unchanged.
func (t *NoOpTracer) StartTickSpan(ctx context.Context, workerID string) (context.Context, func()) {
	return ctx, func() {}
}

// StartStepSpan returns the context unchanged.
func (t *NoOpTracer) StartStepSpan(ctx context.Context, stepName string) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
