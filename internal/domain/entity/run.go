package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// RunStatus represents the state of one ingestion run.
type RunStatus string

const (
	RunStatusPending         RunStatus = "PENDING"
	RunStatusValidating      RunStatus = "VALIDATING"
	RunStatusTransforming    RunStatus = "TRANSFORMING"
	RunStatusQualityChecking RunStatus = "QUALITY_CHECKING"
	RunStatusLoading         RunStatus = "LOADING"
	RunStatusCompleted       RunStatus = "COMPLETED"
	RunStatusFailed          RunStatus = "FAILED"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsFinished checks if the RunStatus represents a terminal state.
func (s RunStatus) IsFinished() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// isValidRunTransition checks if the state transition for RunExecution is valid.
// Stages advance strictly in pipeline order; FAILED is reachable from any
// non-terminal state.
func isValidRunTransition(current, next RunStatus) bool {
	if next == RunStatusFailed {
		return !current.IsFinished()
	}
	switch current {
	case RunStatusPending:
		return next == RunStatusValidating
	case RunStatusValidating:
		return next == RunStatusTransforming
	case RunStatusTransforming:
		return next == RunStatusQualityChecking
	case RunStatusQualityChecking:
		return next == RunStatusLoading
	case RunStatusLoading:
		return next == RunStatusCompleted
	default:
		return false
	}
}

// FailureList holds a list of error messages.
type FailureList []string

// Value implements the `driver.Valuer` interface, converting FailureList to a JSON string.
func (fl FailureList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(fl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to FailureList.
func (fl *FailureList) Scan(value interface{}) error {
	if value == nil {
		*fl = make(FailureList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}

	if len(b) == 0 {
		*fl = make(FailureList, 0)
		return nil
	}

	if err := json.Unmarshal(b, fl); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	return nil
}

// RunExecution is one attempt at ingesting a batch, persisted to the
// ingest_runs table for run history and auditing.
type RunExecution struct {
	ID           string
	BatchID      string
	Status       RunStatus
	FailureStage Stage
	Failures     FailureList
	RecordsTotal int
	Inserted     int
	Updated      int
	Rejected     int
	StartTime    time.Time
	EndTime      *time.Time
	CreateTime   time.Time
	LastUpdated  time.Time
	Version      int
}

// NewRunExecution creates a new RunExecution in the PENDING state.
func NewRunExecution(batchID string) *RunExecution {
	now := time.Now()
	return &RunExecution{
		ID:          NewID(),
		BatchID:     batchID,
		Status:      RunStatusPending,
		Failures:    make(FailureList, 0),
		StartTime:   now,
		CreateTime:  now,
		LastUpdated: now,
	}
}

// TransitionTo changes the run status, rejecting illegal transitions.
func (re *RunExecution) TransitionTo(newStatus RunStatus) error {
	if !isValidRunTransition(re.Status, newStatus) {
		return fmt.Errorf("RunExecution (ID: %s): invalid state transition: %s -> %s", re.ID, re.Status, newStatus)
	}
	re.Status = newStatus
	re.LastUpdated = time.Now()
	return nil
}

// MarkAsCompleted updates the run status to COMPLETED.
func (re *RunExecution) MarkAsCompleted() {
	if err := re.TransitionTo(RunStatusCompleted); err != nil {
		logger.Warnf("Could not update RunExecution (ID: %s) status to COMPLETED: %v", re.ID, err)
		re.Status = RunStatusCompleted
	}
	now := time.Now()
	re.EndTime = &now
	re.LastUpdated = now
}

// MarkAsFailed updates the run status to FAILED, recording the failing stage
// and error information.
func (re *RunExecution) MarkAsFailed(stage Stage, err error) {
	if terr := re.TransitionTo(RunStatusFailed); terr != nil {
		logger.Warnf("Could not update RunExecution (ID: %s) status to FAILED: %v", re.ID, terr)
		re.Status = RunStatusFailed
	}
	re.FailureStage = stage
	now := time.Now()
	re.EndTime = &now
	re.LastUpdated = now
	if err != nil {
		re.AddFailure(err)
	}
}

// AddFailure adds error information to the run. Duplicate messages are skipped.
func (re *RunExecution) AddFailure(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)
	for _, existing := range re.Failures {
		if existing == errMsg {
			logger.Debugf("Skipped adding duplicate error '%s' to RunExecution (ID: %s).", errMsg, re.ID)
			return
		}
	}
	re.Failures = append(re.Failures, errMsg)
	re.LastUpdated = time.Now()
}

// RunResult is the summary emitted when a run finishes, successfully or not.
type RunResult struct {
	RunID   string
	BatchID string
	Status  RunStatus
	// RecordsTotal is the number of records in the source batch.
	RecordsTotal int
	// Inserted is the number of rows newly created in the warehouse.
	Inserted int
	// Updated is the number of existing rows overwritten by the merge.
	Updated int
	// Rejected is the number of records dropped across all stages.
	Rejected int
	// SampleRejections holds up to the configured limit of rejection
	// descriptions, in source order.
	SampleRejections []string
	// FailureStage and FailureReason are set only when Status is FAILED.
	FailureStage  Stage
	FailureReason string
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
