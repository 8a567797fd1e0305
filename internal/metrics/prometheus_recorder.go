package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// PrometheusRecorder is a Prometheus implementation of the Recorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	runDurationSeconds   *prometheus.HistogramVec
	runStatusCounter     *prometheus.CounterVec
	stageDurationSeconds *prometheus.HistogramVec
	dispositionCounter   *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its
// own registry, including the Go and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ordersink_run_duration_seconds",
			Help:    "Duration of ingestion run executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"batch_id", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordersink_run_status_total",
			Help: "Total number of ingestion runs by status.",
		}, []string{"status"}),
		stageDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ordersink_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		dispositionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordersink_records_total",
			Help: "Total records processed by disposition.",
		}, []string{"disposition"}),
	}

	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runStatusCounter)
	registry.MustRegister(r.stageDurationSeconds)
	registry.MustRegister(r.dispositionCounter)

	return r
}

// GetRegistry returns the Prometheus registry backing this recorder.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordRunStart records the start of a run execution.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, run *entity.RunExecution) {
	r.runStatusCounter.WithLabelValues(run.Status.String()).Inc()
	logger.Debugf("Metrics: run '%s' started.", run.ID)
}

// RecordRunEnd records the end of a run execution.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, run *entity.RunExecution) {
	r.runStatusCounter.WithLabelValues(run.Status.String()).Inc()
	if run.EndTime == nil {
		return
	}
	duration := run.EndTime.Sub(run.StartTime).Seconds()
	r.runDurationSeconds.WithLabelValues(run.BatchID, run.Status.String()).Observe(duration)
	logger.Debugf("Metrics: run '%s' ended. Duration: %.3fs", run.ID, duration)
}

// RecordStageDuration records the wall time of one pipeline stage.
func (r *PrometheusRecorder) RecordStageDuration(ctx context.Context, stage entity.Stage, duration time.Duration) {
	r.stageDurationSeconds.WithLabelValues(string(stage)).Observe(duration.Seconds())
}

// RecordDisposition counts records by outcome.
func (r *PrometheusRecorder) RecordDisposition(ctx context.Context, disposition string, count int) {
	r.dispositionCounter.WithLabelValues(disposition).Add(float64(count))
}

var _ Recorder = (*PrometheusRecorder)(nil)
