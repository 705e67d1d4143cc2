// Package telemetry installs the global OpenTelemetry TracerProvider.
// When pacer.telemetry.enabled is false nothing is installed and span
// creation throughout the coordinator stays a no-op.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// SetupTracing wires the OTLP/HTTP trace exporter into the application
// lifecycle. The provider is flushed and shut down on stop so short-lived
// runs do not lose their trailing spans.
func SetupTracing(lc fx.Lifecycle, cfg *config.Config) {
	tc := cfg.Pacer.Telemetry
	if !tc.Enabled {
		logger.Debugf("Telemetry is disabled; spans will not be exported.")
		return
	}

	var provider *sdktrace.TracerProvider

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
			if tc.Endpoint != "" {
				opts = append(opts, otlptracehttp.WithEndpoint(tc.Endpoint))
			}
			exporter, err := otlptracehttp.New(ctx, opts...)
			if err != nil {
				return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
			}

			serviceName := tc.ServiceName
			if serviceName == "" {
				serviceName = "pacer"
			}
			res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(serviceName),
			))
			if err != nil {
				return fmt.Errorf("failed to build trace resource: %w", err)
			}

			provider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter),
				sdktrace.WithResource(res),
			)
			otel.SetTracerProvider(provider)
			logger.Infof("Telemetry enabled; exporting traces to '%s' as service '%s'.", tc.Endpoint, serviceName)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if provider == nil {
				return nil
			}
			return provider.Shutdown(ctx)
		},
	})
}

// Module installs the trace exporter when telemetry is enabled.
var Module = fx.Options(
	fx.Invoke(SetupTracing),
)
