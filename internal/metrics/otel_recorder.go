package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// OTelRecorder is an OpenTelemetry implementation of the Recorder interface.
// It records against whatever MeterProvider the telemetry bootstrap installed.
type OTelRecorder struct {
	runDuration   metric.Float64Histogram
	runStatus     metric.Int64Counter
	stageDuration metric.Float64Histogram
	dispositions  metric.Int64Counter
}

// NewOTelRecorder creates an OTelRecorder from the given meter.
func NewOTelRecorder(meter metric.Meter) (*OTelRecorder, error) {
	runDuration, err := meter.Float64Histogram("ordersink.run.duration",
		metric.WithDescription("Duration of ingestion run executions."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	runStatus, err := meter.Int64Counter("ordersink.run.status",
		metric.WithDescription("Total number of ingestion runs by status."))
	if err != nil {
		return nil, err
	}
	stageDuration, err := meter.Float64Histogram("ordersink.stage.duration",
		metric.WithDescription("Duration of pipeline stages."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	dispositions, err := meter.Int64Counter("ordersink.records",
		metric.WithDescription("Total records processed by disposition."))
	if err != nil {
		return nil, err
	}

	return &OTelRecorder{
		runDuration:   runDuration,
		runStatus:     runStatus,
		stageDuration: stageDuration,
		dispositions:  dispositions,
	}, nil
}

// RecordRunStart records the start of a run execution.
func (r *OTelRecorder) RecordRunStart(ctx context.Context, run *entity.RunExecution) {
	r.runStatus.Add(ctx, 1, metric.WithAttributes(attribute.String("status", run.Status.String())))
	logger.Debugf("Metrics: run '%s' started.", run.ID)
}

// RecordRunEnd records the end of a run execution.
func (r *OTelRecorder) RecordRunEnd(ctx context.Context, run *entity.RunExecution) {
	r.runStatus.Add(ctx, 1, metric.WithAttributes(attribute.String("status", run.Status.String())))
	if run.EndTime == nil {
		return
	}
	r.runDuration.Record(ctx, run.EndTime.Sub(run.StartTime).Seconds(), metric.WithAttributes(
		attribute.String("batch_id", run.BatchID),
		attribute.String("status", run.Status.String()),
	))
}

// RecordStageDuration records the wall time of one pipeline stage.
func (r *OTelRecorder) RecordStageDuration(ctx context.Context, stage entity.Stage, duration time.Duration) {
	r.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", string(stage)),
	))
}

// RecordDisposition counts records by outcome.
func (r *OTelRecorder) RecordDisposition(ctx context.Context, disposition string, count int) {
	r.dispositions.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("disposition", disposition),
	))
}

var _ Recorder = (*OTelRecorder)(nil)
