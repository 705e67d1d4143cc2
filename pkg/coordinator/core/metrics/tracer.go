package metrics

import (
	"context"
)

// Tracer is an abstract interface for distributed tracing.
// It integrates with tracing systems like OpenTelemetry, enabling
// visualization of the tick pipeline and its steps.
type Tracer interface {
	// StartTickSpan starts a Span covering one full coordinator tick.
	//
	// Returns a context with the new Span set, and a function to end the Span.
	// It is recommended to call the returned function in a defer statement.
	StartTickSpan(ctx context.Context, workerID string) (context.Context, func())

	// StartStepSpan starts a Span for one pipeline step (typically a child of
	// the tick span).
	StartStepSpan(ctx context.Context, stepName string) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: the name of the component where the error occurred
	// (e.g., "scheduler", "dispatch").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	//
	// Example attributes: `map[string]interface{}{"category": "content", "batch_size": 6}`.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
