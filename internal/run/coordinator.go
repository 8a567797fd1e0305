// Package run coordinates one ingestion run end to end: reading the source
// batch, validating, transforming, quality checking, loading, and persisting
// run state after every stage transition.
package run

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/loader"
	"github.com/tigerroll/ordersink/internal/metrics"
	"github.com/tigerroll/ordersink/internal/repository"
	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
	"github.com/tigerroll/ordersink/internal/telemetry"
)

const moduleName = "coordinator"

// BatchReader reads the source batch for a run.
type BatchReader interface {
	Read(ctx context.Context) (*entity.RawBatch, error)
}

// Validator checks raw records against the order schema.
type Validator interface {
	ValidateBatch(batch *entity.RawBatch) ([]entity.IndexedRecord, []entity.RejectedRecord)
}

// Transformer coerces validated records into typed order records.
type Transformer interface {
	TransformBatch(records []entity.IndexedRecord) ([]entity.IndexedOrder, []entity.RejectedRecord)
}

// QualityGate applies quality rules and the batch-level rejection ceiling.
type QualityGate interface {
	EvaluateBatch(orders []entity.IndexedOrder, recordsTotal, rejectedSoFar int) ([]entity.IndexedOrder, []entity.RejectedRecord, error)
}

// Loader merges accepted orders into the warehouse.
type Loader interface {
	Load(ctx context.Context, orders []entity.OrderRecord) (loader.LoadResult, error)
}

// RejectionExporter archives a run's rejections for later inspection.
type RejectionExporter interface {
	Export(ctx context.Context, batchID string, rejections []entity.RejectedRecord) error
}

// Coordinator drives a single run through the pipeline stages.
type Coordinator struct {
	reader      BatchReader
	validator   Validator
	transformer Transformer
	gate        QualityGate
	loader      Loader
	exporter    RejectionExporter
	repo        repository.RunRepository
	recorder    metrics.Recorder
	cfg         *config.PipelineConfig
	source      *config.SourceConfig
}

// NewCoordinator wires a Coordinator from its collaborators.
func NewCoordinator(
	reader BatchReader,
	validator Validator,
	transformer Transformer,
	gate QualityGate,
	ldr Loader,
	exporter RejectionExporter,
	repo repository.RunRepository,
	recorder metrics.Recorder,
	cfg *config.PipelineConfig,
	source *config.SourceConfig,
) *Coordinator {
	return &Coordinator{
		reader:      reader,
		validator:   validator,
		transformer: transformer,
		gate:        gate,
		loader:      ldr,
		exporter:    exporter,
		repo:        repo,
		recorder:    recorder,
		cfg:         cfg,
		source:      source,
	}
}

// Execute runs the full pipeline once and returns the run summary. The
// RunResult is returned even when the run fails, alongside the failure error,
// so callers can report partial progress.
func (c *Coordinator) Execute(ctx context.Context) (*entity.RunResult, error) {
	run := entity.NewRunExecution(c.source.Object)
	logger.Infof("Starting ingestion run %s for batch '%s'.", run.ID, run.BatchID)

	ctx, runSpan := telemetry.StartSpan(ctx, "ingest_run",
		attribute.String("run.id", run.ID),
		attribute.String("batch.id", run.BatchID),
	)
	defer runSpan.End()

	c.recorder.RecordRunStart(ctx, run)
	if err := c.repo.SaveRun(ctx, run); err != nil {
		return nil, err
	}

	rejections, failedStage, err := c.runStages(ctx, run)
	run.Rejected = len(rejections)

	if exportErr := c.exporter.Export(ctx, run.BatchID, rejections); exportErr != nil {
		logger.Warnf("Quarantine export for batch '%s' failed: %v", run.BatchID, exportErr)
	}

	if err != nil {
		run.MarkAsFailed(failedStage, err)
	} else {
		run.MarkAsCompleted()
	}

	c.recorder.RecordRunEnd(ctx, run)
	c.recorder.RecordDisposition(ctx, "inserted", run.Inserted)
	c.recorder.RecordDisposition(ctx, "updated", run.Updated)
	c.recorder.RecordDisposition(ctx, "rejected", run.Rejected)

	if updErr := c.repo.UpdateRun(ctx, run); updErr != nil {
		logger.Errorf("Failed to persist final state of run %s: %v", run.ID, updErr)
		if err == nil {
			err = updErr
		}
	}

	result := c.buildResult(run, rejections)
	logger.Infof("Run %s finished with status %s: total=%d inserted=%d updated=%d rejected=%d.",
		run.ID, run.Status, run.RecordsTotal, run.Inserted, run.Updated, run.Rejected)
	for _, sample := range result.SampleRejections {
		logger.Warnf("Rejection sample: %s", sample)
	}
	return result, err
}

// runStages walks the run through its stages in order, accumulating
// rejections. It returns the stage at which the run failed, if any.
func (c *Coordinator) runStages(ctx context.Context, run *entity.RunExecution) ([]entity.RejectedRecord, entity.Stage, error) {
	var rejections []entity.RejectedRecord

	if err := c.advance(ctx, run, entity.RunStatusValidating); err != nil {
		return rejections, entity.StageValidating, err
	}
	var validated []entity.IndexedRecord
	err := c.timedStage(ctx, entity.StageValidating, func(ctx context.Context) error {
		batch, err := c.reader.Read(ctx)
		if err != nil {
			return err
		}
		run.BatchID = batch.BatchID
		run.RecordsTotal = len(batch.Records)

		var rejected []entity.RejectedRecord
		validated, rejected = c.validator.ValidateBatch(batch)
		rejections = append(rejections, rejected...)
		return nil
	})
	if err != nil {
		return rejections, entity.StageValidating, err
	}

	if err := c.advance(ctx, run, entity.RunStatusTransforming); err != nil {
		return rejections, entity.StageTransforming, err
	}
	var orders []entity.IndexedOrder
	err = c.timedStage(ctx, entity.StageTransforming, func(ctx context.Context) error {
		var rejected []entity.RejectedRecord
		orders, rejected = c.transformer.TransformBatch(validated)
		rejections = append(rejections, rejected...)
		return nil
	})
	if err != nil {
		return rejections, entity.StageTransforming, err
	}

	if err := c.advance(ctx, run, entity.RunStatusQualityChecking); err != nil {
		return rejections, entity.StageQualityChecking, err
	}
	var accepted []entity.IndexedOrder
	err = c.timedStage(ctx, entity.StageQualityChecking, func(ctx context.Context) error {
		passed, rejected, err := c.gate.EvaluateBatch(orders, run.RecordsTotal, len(rejections))
		rejections = append(rejections, rejected...)
		if err != nil {
			return err
		}
		accepted = passed
		return nil
	})
	if err != nil {
		return rejections, entity.StageQualityChecking, err
	}

	if err := c.advance(ctx, run, entity.RunStatusLoading); err != nil {
		return rejections, entity.StageLoading, err
	}
	err = c.timedStage(ctx, entity.StageLoading, func(ctx context.Context) error {
		records := make([]entity.OrderRecord, len(accepted))
		for i, o := range accepted {
			records[i] = o.Order
		}
		result, err := c.loader.Load(ctx, records)
		if err != nil {
			return err
		}
		run.Inserted = result.Inserted
		run.Updated = result.Updated
		return nil
	})
	if err != nil {
		return rejections, entity.StageLoading, err
	}

	return rejections, "", nil
}

// advance moves the run to the next status and persists the transition.
func (c *Coordinator) advance(ctx context.Context, run *entity.RunExecution, status entity.RunStatus) error {
	if err := run.TransitionTo(status); err != nil {
		return exception.NewPipelineError(moduleName, "illegal run state transition", err, false, false)
	}
	return c.repo.UpdateRun(ctx, run)
}

// timedStage runs one stage under a span and records its wall time.
func (c *Coordinator) timedStage(ctx context.Context, stage entity.Stage, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, string(stage))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	c.recorder.RecordStageDuration(ctx, stage, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return err
	}
	logger.Debugf("Stage %s completed in %s.", stage, time.Since(start))
	return nil
}

// buildResult assembles the run summary, capping rejection samples at the
// configured limit in source row order.
func (c *Coordinator) buildResult(run *entity.RunExecution, rejections []entity.RejectedRecord) *entity.RunResult {
	sorted := make([]entity.RejectedRecord, len(rejections))
	copy(sorted, rejections)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RowIndex < sorted[j].RowIndex })

	limit := c.cfg.SampleRejectionLimit
	if limit > len(sorted) {
		limit = len(sorted)
	}
	samples := make([]string, 0, limit)
	for _, rejection := range sorted[:limit] {
		samples = append(samples, rejection.String())
	}

	result := &entity.RunResult{
		RunID:            run.ID,
		BatchID:          run.BatchID,
		Status:           run.Status,
		RecordsTotal:     run.RecordsTotal,
		Inserted:         run.Inserted,
		Updated:          run.Updated,
		Rejected:         run.Rejected,
		SampleRejections: samples,
		FailureStage:     run.FailureStage,
	}
	if run.Status == entity.RunStatusFailed && len(run.Failures) > 0 {
		result.FailureReason = run.Failures[len(run.Failures)-1]
	}
	return result
}
