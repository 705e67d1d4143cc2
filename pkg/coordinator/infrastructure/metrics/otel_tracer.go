package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
)

// tracerName identifies the instrumentation scope in emitted spans.
const tracerName = "github.com/pressflow/pacer/pkg/coordinator"

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
// Spans go to whatever TracerProvider is installed globally; with the telemetry
// module disabled that is the default no-op provider, so tracing is free to
// leave wired in everywhere.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a new instance of OpenTelemetryTracer.
func NewOpenTelemetryTracer() metrics.Tracer {
	return &OpenTelemetryTracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartTickSpan starts a span covering one full coordinator tick.
func (t *OpenTelemetryTracer) StartTickSpan(ctx context.Context, workerID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "pacer.tick",
		trace.WithAttributes(attribute.String("pacer.worker_id", workerID)))
	return ctx, func() { span.End() }
}

// StartStepSpan starts a span for one pipeline step.
func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, stepName string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("pacer.step.%s", stepName))
	return ctx, func() { span.End() }
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err, trace.WithAttributes(attribute.String("pacer.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
