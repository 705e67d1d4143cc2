package metrics

import (
	"context"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics about
// coordination activity.
//
// This interface provides a standardized way to record tick, dispatch, queue
// and resource-pool events, which facilitates integration with different
// metrics backends (e.g., Prometheus, OpenTelemetry Metrics).
type MetricRecorder interface {
	// RecordTickStart records the start of a coordinator tick.
	RecordTickStart(ctx context.Context, workerID string)

	// RecordTickEnd records the end of a coordinator tick with its result.
	RecordTickEnd(ctx context.Context, result *model.TickResult)

	// RecordDispatch records one execution record handed off to the executor.
	RecordDispatch(ctx context.Context, record *model.ExecutionRecord)

	// RecordExecutionOutcome records a record reaching a terminal status.
	RecordExecutionOutcome(ctx context.Context, record *model.ExecutionRecord)

	// RecordQueueClaim records a successful queue item claim.
	RecordQueueClaim(ctx context.Context, item *model.QueueItem)

	// RecordQueueOutcome records a queue item reaching COMPLETED or FAILED,
	// or returning to QUEUED after a retryable failure.
	RecordQueueOutcome(ctx context.Context, item *model.QueueItem)

	// RecordPoolUtilization records the current utilization of one pool.
	RecordPoolUtilization(ctx context.Context, pool *model.ResourcePool)

	// RecordAlert records an alert being raised.
	RecordAlert(ctx context.Context, alert *model.Alert)

	// RecordDuration records a generic named duration with optional tags.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
