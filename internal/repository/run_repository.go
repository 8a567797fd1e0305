// Package repository persists run executions to the ingest_runs table, giving
// every batch run an auditable history row with optimistic locking.
package repository

import (
	"context"
	"time"

	"github.com/tigerroll/ordersink/internal/adapter/database"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

const moduleName = "repository"

// runsTable is the run history table.
const runsTable = "ingest_runs"

// runExecutionRow is the persistence shape of entity.RunExecution.
type runExecutionRow struct {
	ID           string             `gorm:"column:id;primaryKey"`
	BatchID      string             `gorm:"column:batch_id"`
	Status       string             `gorm:"column:status"`
	FailureStage string             `gorm:"column:failure_stage"`
	Failures     entity.FailureList `gorm:"column:failures"`
	RecordsTotal int                `gorm:"column:records_total"`
	Inserted     int                `gorm:"column:inserted_count"`
	Updated      int                `gorm:"column:updated_count"`
	Rejected     int                `gorm:"column:rejected_count"`
	StartTime    time.Time          `gorm:"column:start_time"`
	EndTime      *time.Time         `gorm:"column:end_time"`
	CreateTime   time.Time          `gorm:"column:create_time"`
	LastUpdated  time.Time          `gorm:"column:last_updated"`
	Version      int                `gorm:"column:version"`
}

func (runExecutionRow) TableName() string {
	return runsTable
}

func toRow(re *entity.RunExecution) *runExecutionRow {
	return &runExecutionRow{
		ID:           re.ID,
		BatchID:      re.BatchID,
		Status:       re.Status.String(),
		FailureStage: string(re.FailureStage),
		Failures:     re.Failures,
		RecordsTotal: re.RecordsTotal,
		Inserted:     re.Inserted,
		Updated:      re.Updated,
		Rejected:     re.Rejected,
		StartTime:    re.StartTime,
		EndTime:      re.EndTime,
		CreateTime:   re.CreateTime,
		LastUpdated:  re.LastUpdated,
		Version:      re.Version,
	}
}

func fromRow(row *runExecutionRow) *entity.RunExecution {
	return &entity.RunExecution{
		ID:           row.ID,
		BatchID:      row.BatchID,
		Status:       entity.RunStatus(row.Status),
		FailureStage: entity.Stage(row.FailureStage),
		Failures:     row.Failures,
		RecordsTotal: row.RecordsTotal,
		Inserted:     row.Inserted,
		Updated:      row.Updated,
		Rejected:     row.Rejected,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		CreateTime:   row.CreateTime,
		LastUpdated:  row.LastUpdated,
		Version:      row.Version,
	}
}

// RunRepository stores and updates run executions.
type RunRepository interface {
	// SaveRun persists a new run execution.
	SaveRun(ctx context.Context, re *entity.RunExecution) error
	// UpdateRun persists run state changes. It enforces optimistic locking on
	// the version column and bumps the in-memory version on success.
	UpdateRun(ctx context.Context, re *entity.RunExecution) error
	// FindRun loads one run execution by ID. It returns nil when no run matches.
	FindRun(ctx context.Context, id string) (*entity.RunExecution, error)
}

// gormRunRepository is the transaction-manager backed RunRepository.
type gormRunRepository struct {
	txManager database.TransactionManager
}

// NewRunRepository creates a RunRepository over the warehouse transaction manager.
func NewRunRepository(txManager database.TransactionManager) RunRepository {
	return &gormRunRepository{txManager: txManager}
}

// SaveRun implements RunRepository.
func (r *gormRunRepository) SaveRun(ctx context.Context, re *entity.RunExecution) error {
	tx, err := r.txManager.Begin(ctx)
	if err != nil {
		return exception.NewPipelineError(moduleName, "failed to begin transaction for SaveRun", err, false, true)
	}

	if _, err := tx.ExecuteUpdate(ctx, toRow(re), "CREATE", runsTable, nil); err != nil {
		if rbErr := r.txManager.Rollback(tx); rbErr != nil {
			logger.Errorf("Failed to roll back SaveRun transaction: %v", rbErr)
		}
		return exception.NewPipelineError(moduleName, "failed to insert run execution", err, false, true)
	}

	if err := r.txManager.Commit(tx); err != nil {
		return exception.NewPipelineError(moduleName, "failed to commit SaveRun transaction", err, false, true)
	}
	logger.Debugf("Saved run execution '%s' (batch '%s').", re.ID, re.BatchID)
	return nil
}

// UpdateRun implements RunRepository.
func (r *gormRunRepository) UpdateRun(ctx context.Context, re *entity.RunExecution) error {
	tx, err := r.txManager.Begin(ctx)
	if err != nil {
		return exception.NewPipelineError(moduleName, "failed to begin transaction for UpdateRun", err, false, true)
	}

	row := toRow(re)
	row.Version = re.Version + 1
	row.LastUpdated = time.Now()

	rowsAffected, err := tx.ExecuteUpdate(ctx, row, "UPDATE", runsTable, map[string]interface{}{
		"id":      re.ID,
		"version": re.Version,
	})
	if err != nil {
		if rbErr := r.txManager.Rollback(tx); rbErr != nil {
			logger.Errorf("Failed to roll back UpdateRun transaction: %v", rbErr)
		}
		return exception.NewPipelineError(moduleName, "failed to update run execution", err, false, true)
	}
	if rowsAffected == 0 {
		if rbErr := r.txManager.Rollback(tx); rbErr != nil {
			logger.Errorf("Failed to roll back UpdateRun transaction: %v", rbErr)
		}
		return exception.NewOptimisticLockingFailure(moduleName,
			"run execution was modified concurrently: "+re.ID, nil)
	}

	if err := r.txManager.Commit(tx); err != nil {
		return exception.NewPipelineError(moduleName, "failed to commit UpdateRun transaction", err, false, true)
	}

	re.Version++
	re.LastUpdated = row.LastUpdated
	logger.Debugf("Updated run execution '%s' to status %s (version %d).", re.ID, re.Status, re.Version)
	return nil
}

// FindRun implements RunRepository.
func (r *gormRunRepository) FindRun(ctx context.Context, id string) (*entity.RunExecution, error) {
	tx, err := r.txManager.Begin(ctx)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to begin transaction for FindRun", err, false, true)
	}
	defer func() {
		if err := r.txManager.Commit(tx); err != nil {
			logger.Warnf("Failed to finish FindRun transaction: %v", err)
		}
	}()

	var row runExecutionRow
	found, err := tx.SelectOne(ctx, &row, runsTable, map[string]interface{}{"id": id})
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to query run execution", err, false, true)
	}
	if !found {
		return nil, nil
	}
	return fromRow(&row), nil
}
