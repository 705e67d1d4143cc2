package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// ServeMetricsEndpoint exposes the Prometheus registry over HTTP when
// pacer.telemetry.metrics_port is set.
func ServeMetricsEndpoint(lc fx.Lifecycle, recorder metrics.MetricRecorder, cfg *config.Config) {
	port := cfg.Pacer.Telemetry.MetricsPort
	if port <= 0 {
		return
	}
	promRecorder, ok := recorder.(*PrometheusRecorder)
	if !ok {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promRecorder.GetRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Infof("Serving Prometheus metrics on :%d/metrics", port)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("Metrics endpoint failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

// Module is an Fx module that provides PrometheusRecorder and OpenTelemetryTracer.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewPrometheusRecorder,
		fx.As(new(metrics.MetricRecorder)),
	)),
	fx.Provide(fx.Annotate(
		NewOpenTelemetryTracer,
		fx.As(new(metrics.Tracer)),
	)),
	fx.Invoke(ServeMetricsEndpoint),
)
