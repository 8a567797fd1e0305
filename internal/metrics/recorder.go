// Package metrics records pipeline run metrics. A Recorder abstracts the
// backend; Prometheus and OpenTelemetry implementations exist plus a noop
// fallback used when metrics are disabled.
package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/ordersink/internal/domain/entity"
)

// Recorder records run-level and stage-level pipeline metrics.
type Recorder interface {
	// RecordRunStart records the start of a run execution.
	RecordRunStart(ctx context.Context, run *entity.RunExecution)
	// RecordRunEnd records the completion (or failure) of a run execution.
	RecordRunEnd(ctx context.Context, run *entity.RunExecution)
	// RecordStageDuration records the wall time of one pipeline stage.
	RecordStageDuration(ctx context.Context, stage entity.Stage, duration time.Duration)
	// RecordDisposition counts records by outcome ("inserted", "updated",
	// "rejected").
	RecordDisposition(ctx context.Context, disposition string, count int)
}

// NoopRecorder discards all metrics.
type NoopRecorder struct{}

// NewNoopRecorder creates a Recorder that records nothing.
func NewNoopRecorder() Recorder {
	return &NoopRecorder{}
}

func (*NoopRecorder) RecordRunStart(context.Context, *entity.RunExecution) {}
func (*NoopRecorder) RecordRunEnd(context.Context, *entity.RunExecution)   {}
func (*NoopRecorder) RecordStageDuration(context.Context, entity.Stage, time.Duration) {
}
func (*NoopRecorder) RecordDisposition(context.Context, string, int) {}

var _ Recorder = (*NoopRecorder)(nil)
