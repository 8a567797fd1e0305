package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/support/logger"
	"github.com/tigerroll/ordersink/internal/telemetry"
)

// NewRecorder selects the Recorder implementation from configuration:
// Prometheus when metrics exposition is enabled, OpenTelemetry when only
// telemetry is enabled, noop otherwise. The Prometheus path also starts the
// /metrics endpoint on the configured listen address. The telemetry providers
// are a dependency so the global meter provider is installed before the
// OpenTelemetry recorder captures it.
func NewRecorder(lc fx.Lifecycle, cfg *config.Config, _ *telemetry.Providers) (Recorder, error) {
	switch {
	case cfg.Ordersink.Metrics.Enabled:
		recorder := NewPrometheusRecorder()
		startExpositionServer(lc, cfg.Ordersink.Metrics.ListenAddress, recorder)
		return recorder, nil
	case cfg.Ordersink.Telemetry.Enabled:
		return NewOTelRecorder(otel.Meter("ordersink"))
	default:
		return NewNoopRecorder(), nil
	}
}

// startExpositionServer serves the recorder's registry over HTTP for the
// lifetime of the application.
func startExpositionServer(lc fx.Lifecycle, addr string, recorder *PrometheusRecorder) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.GetRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Infof("Metrics endpoint listening on %s.", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("Metrics endpoint failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// Module provides the metrics recorder to Fx.
var Module = fx.Options(
	fx.Provide(NewRecorder),
)
