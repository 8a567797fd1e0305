package run_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/loader"
	"github.com/tigerroll/ordersink/internal/metrics"
	"github.com/tigerroll/ordersink/internal/run"
	"github.com/tigerroll/ordersink/internal/support/exception"
)

type MockReader struct{ testify_mock.Mock }

func (m *MockReader) Read(ctx context.Context) (*entity.RawBatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RawBatch), args.Error(1)
}

type MockValidator struct{ testify_mock.Mock }

func (m *MockValidator) ValidateBatch(batch *entity.RawBatch) ([]entity.IndexedRecord, []entity.RejectedRecord) {
	args := m.Called(batch)
	return args.Get(0).([]entity.IndexedRecord), args.Get(1).([]entity.RejectedRecord)
}

type MockTransformer struct{ testify_mock.Mock }

func (m *MockTransformer) TransformBatch(records []entity.IndexedRecord) ([]entity.IndexedOrder, []entity.RejectedRecord) {
	args := m.Called(records)
	return args.Get(0).([]entity.IndexedOrder), args.Get(1).([]entity.RejectedRecord)
}

type MockGate struct{ testify_mock.Mock }

func (m *MockGate) EvaluateBatch(orders []entity.IndexedOrder, recordsTotal, rejectedSoFar int) ([]entity.IndexedOrder, []entity.RejectedRecord, error) {
	args := m.Called(orders, recordsTotal, rejectedSoFar)
	return args.Get(0).([]entity.IndexedOrder), args.Get(1).([]entity.RejectedRecord), args.Error(2)
}

type MockLoader struct{ testify_mock.Mock }

func (m *MockLoader) Load(ctx context.Context, orders []entity.OrderRecord) (loader.LoadResult, error) {
	args := m.Called(ctx, orders)
	return args.Get(0).(loader.LoadResult), args.Error(1)
}

type MockExporter struct{ testify_mock.Mock }

func (m *MockExporter) Export(ctx context.Context, batchID string, rejections []entity.RejectedRecord) error {
	args := m.Called(ctx, batchID, rejections)
	return args.Error(0)
}

type MockRunRepository struct{ testify_mock.Mock }

func (m *MockRunRepository) SaveRun(ctx context.Context, re *entity.RunExecution) error {
	args := m.Called(ctx, re)
	return args.Error(0)
}

func (m *MockRunRepository) UpdateRun(ctx context.Context, re *entity.RunExecution) error {
	args := m.Called(ctx, re)
	return args.Error(0)
}

func (m *MockRunRepository) FindRun(ctx context.Context, id string) (*entity.RunExecution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RunExecution), args.Error(1)
}

type fixture struct {
	reader      *MockReader
	validator   *MockValidator
	transformer *MockTransformer
	gate        *MockGate
	loader      *MockLoader
	exporter    *MockExporter
	repo        *MockRunRepository
	coordinator *run.Coordinator
}

func newFixture() *fixture {
	f := &fixture{
		reader:      new(MockReader),
		validator:   new(MockValidator),
		transformer: new(MockTransformer),
		gate:        new(MockGate),
		loader:      new(MockLoader),
		exporter:    new(MockExporter),
		repo:        new(MockRunRepository),
	}
	f.coordinator = run.NewCoordinator(
		f.reader, f.validator, f.transformer, f.gate, f.loader, f.exporter, f.repo,
		metrics.NewNoopRecorder(),
		&config.PipelineConfig{SampleRejectionLimit: 5},
		&config.SourceConfig{StorageRef: "local", Object: "orders/batch.csv", Format: "csv"},
	)
	f.repo.On("SaveRun", testify_mock.Anything, testify_mock.Anything).Return(nil)
	f.repo.On("UpdateRun", testify_mock.Anything, testify_mock.Anything).Return(nil)
	f.exporter.On("Export", testify_mock.Anything, testify_mock.Anything, testify_mock.Anything).Return(nil)
	return f
}

func rawOrder(id string) entity.RawRecord {
	return entity.RawRecord{"order_id": id, "quantity": "1", "price": "10", "order_date": "2024-03-05"}
}

func indexedOrder(rowIndex int, id string) entity.IndexedOrder {
	return entity.IndexedOrder{
		RowIndex: rowIndex,
		Raw:      rawOrder(id),
		Order: entity.OrderRecord{
			OrderID:   id,
			Quantity:  1,
			Price:     10,
			OrderDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestExecuteHappyPath(t *testing.T) {
	f := newFixture()

	batch := &entity.RawBatch{
		BatchID: "orders/batch.csv",
		Records: []entity.RawRecord{rawOrder("A1"), {"quantity": "1"}, rawOrder("A3")},
	}
	f.reader.On("Read", testify_mock.Anything).Return(batch, nil)

	validated := []entity.IndexedRecord{
		{RowIndex: 0, Record: batch.Records[0]},
		{RowIndex: 2, Record: batch.Records[2]},
	}
	rejections := []entity.RejectedRecord{{
		RowIndex: 1,
		Raw:      batch.Records[1],
		Stage:    entity.StageValidating,
		Reason:   entity.NewReason(entity.ReasonMissingField, "order_id"),
	}}
	f.validator.On("ValidateBatch", batch).Return(validated, rejections)

	orders := []entity.IndexedOrder{indexedOrder(0, "A1"), indexedOrder(2, "A3")}
	f.transformer.On("TransformBatch", validated).Return(orders, []entity.RejectedRecord{})
	f.gate.On("EvaluateBatch", orders, 3, 1).Return(orders, []entity.RejectedRecord{}, nil)
	f.loader.On("Load", testify_mock.Anything, []entity.OrderRecord{orders[0].Order, orders[1].Order}).
		Return(loader.LoadResult{Inserted: 1, Updated: 1}, nil)

	result, err := f.coordinator.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, result.Status)
	assert.Equal(t, "orders/batch.csv", result.BatchID)
	assert.Equal(t, 3, result.RecordsTotal)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Rejected)
	assert.Len(t, result.SampleRejections, 1)
	assert.Contains(t, result.SampleRejections[0], "row 1")

	f.exporter.AssertCalled(t, "Export", testify_mock.Anything, "orders/batch.csv", testify_mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestExecuteQualityFailureAbortsBeforeLoad(t *testing.T) {
	f := newFixture()

	batch := &entity.RawBatch{
		BatchID: "orders/batch.csv",
		Records: []entity.RawRecord{rawOrder("A1"), rawOrder("A2")},
	}
	f.reader.On("Read", testify_mock.Anything).Return(batch, nil)

	validated := []entity.IndexedRecord{
		{RowIndex: 0, Record: batch.Records[0]},
		{RowIndex: 1, Record: batch.Records[1]},
	}
	f.validator.On("ValidateBatch", batch).Return(validated, []entity.RejectedRecord{})

	orders := []entity.IndexedOrder{indexedOrder(0, "A1"), indexedOrder(1, "A2")}
	f.transformer.On("TransformBatch", validated).Return(orders, []entity.RejectedRecord{})

	gateRejections := []entity.RejectedRecord{{
		RowIndex: 1,
		Stage:    entity.StageQualityChecking,
		Reason:   entity.NewReason(entity.ReasonNonPositiveQuantity, "quantity, 0"),
	}}
	f.gate.On("EvaluateBatch", orders, 2, 0).
		Return([]entity.IndexedOrder{orders[0]}, gateRejections, exception.ErrBatchQualityFailure)

	result, err := f.coordinator.Execute(context.Background())

	assert.ErrorIs(t, err, exception.ErrBatchQualityFailure)
	assert.Equal(t, entity.RunStatusFailed, result.Status)
	assert.Equal(t, entity.StageQualityChecking, result.FailureStage)
	assert.Equal(t, 1, result.Rejected)
	assert.NotEmpty(t, result.FailureReason)

	f.loader.AssertNotCalled(t, "Load", testify_mock.Anything, testify_mock.Anything)
	f.exporter.AssertCalled(t, "Export", testify_mock.Anything, "orders/batch.csv", testify_mock.Anything)
}

func TestExecuteReaderFailure(t *testing.T) {
	f := newFixture()

	f.reader.On("Read", testify_mock.Anything).
		Return(nil, errors.New("object not found"))

	result, err := f.coordinator.Execute(context.Background())

	assert.Error(t, err)
	assert.Equal(t, entity.RunStatusFailed, result.Status)
	assert.Equal(t, entity.StageValidating, result.FailureStage)
	assert.Contains(t, result.FailureReason, "object not found")

	f.validator.AssertNotCalled(t, "ValidateBatch", testify_mock.Anything)
	f.loader.AssertNotCalled(t, "Load", testify_mock.Anything, testify_mock.Anything)
}

func TestExecuteLoadFailure(t *testing.T) {
	f := newFixture()

	batch := &entity.RawBatch{
		BatchID: "orders/batch.csv",
		Records: []entity.RawRecord{rawOrder("A1")},
	}
	f.reader.On("Read", testify_mock.Anything).Return(batch, nil)

	validated := []entity.IndexedRecord{{RowIndex: 0, Record: batch.Records[0]}}
	f.validator.On("ValidateBatch", batch).Return(validated, []entity.RejectedRecord{})

	orders := []entity.IndexedOrder{indexedOrder(0, "A1")}
	f.transformer.On("TransformBatch", validated).Return(orders, []entity.RejectedRecord{})
	f.gate.On("EvaluateBatch", orders, 1, 0).Return(orders, []entity.RejectedRecord{}, nil)
	f.loader.On("Load", testify_mock.Anything, testify_mock.Anything).
		Return(loader.LoadResult{}, errors.New("deadlock detected"))

	result, err := f.coordinator.Execute(context.Background())

	assert.Error(t, err)
	assert.Equal(t, entity.RunStatusFailed, result.Status)
	assert.Equal(t, entity.StageLoading, result.FailureStage)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 0, result.Updated)
}

func TestExecuteSampleRejectionsCappedAndOrdered(t *testing.T) {
	f := newFixture()

	records := make([]entity.RawRecord, 8)
	var rejections []entity.RejectedRecord
	for i := range records {
		records[i] = entity.RawRecord{"quantity": "1"}
		rejections = append(rejections, entity.RejectedRecord{
			RowIndex: len(records) - 1 - i, // deliberately out of order
			Raw:      records[i],
			Stage:    entity.StageValidating,
			Reason:   entity.NewReason(entity.ReasonMissingField, "order_id"),
		})
	}
	batch := &entity.RawBatch{BatchID: "orders/batch.csv", Records: records}

	f.reader.On("Read", testify_mock.Anything).Return(batch, nil)
	f.validator.On("ValidateBatch", batch).Return([]entity.IndexedRecord{}, rejections)
	f.transformer.On("TransformBatch", testify_mock.Anything).Return([]entity.IndexedOrder{}, []entity.RejectedRecord{})
	f.gate.On("EvaluateBatch", testify_mock.Anything, 8, 8).Return([]entity.IndexedOrder{}, []entity.RejectedRecord{}, nil)
	f.loader.On("Load", testify_mock.Anything, testify_mock.Anything).Return(loader.LoadResult{}, nil)

	result, err := f.coordinator.Execute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 8, result.Rejected)
	assert.Len(t, result.SampleRejections, 5)
	assert.Contains(t, result.SampleRejections[0], "row 0")
	assert.Contains(t, result.SampleRejections[4], "row 4")
}
