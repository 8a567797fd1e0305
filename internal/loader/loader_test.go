package loader_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"

	"github.com/tigerroll/ordersink/internal/adapter/database"
	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/loader"
	"github.com/tigerroll/ordersink/internal/support/exception"
)

// MockTx implements database.Tx for testing.
type MockTx struct {
	testify_mock.Mock
}

func (m *MockTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	args := m.Called(ctx, model, tableName, conflictColumns, updateColumns)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	args := m.Called(ctx, model, operation, tableName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) SelectExistingKeys(ctx context.Context, tableName, keyColumn string, candidates []string) ([]string, error) {
	args := m.Called(ctx, tableName, keyColumn, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTx) SelectOne(ctx context.Context, target interface{}, tableName string, query map[string]interface{}) (bool, error) {
	args := m.Called(ctx, target, tableName, query)
	return args.Bool(0), args.Error(1)
}

// MockTxManager implements database.TransactionManager for testing.
type MockTxManager struct {
	testify_mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (database.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(database.Tx), args.Error(1)
}

func (m *MockTxManager) Commit(t database.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockTxManager) Rollback(t database.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

func newLoader(txManager database.TransactionManager) *loader.UpsertLoader {
	return loader.NewUpsertLoader(txManager, &config.PipelineConfig{LoadTimeoutSeconds: 5})
}

func orderRecord(id string, quantity int, price float64) entity.OrderRecord {
	return entity.OrderRecord{
		OrderID:    id,
		Quantity:   quantity,
		Price:      price,
		TotalPrice: float64(quantity) * price,
		OrderDate:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Status:     "Shipped",
	}
}

func TestLoadDeduplicatesLastWins(t *testing.T) {
	mockTx := new(MockTx)
	txManager := new(MockTxManager)
	txManager.On("Begin", testify_mock.Anything, testify_mock.Anything).Return(mockTx, nil)
	txManager.On("Commit", mockTx).Return(nil)

	mockTx.On("SelectExistingKeys", testify_mock.Anything, "orders_clean", "order_id", []string{"A1", "A2"}).
		Return([]string{}, nil)

	var upserted []entity.OrderRecord
	mockTx.On("ExecuteUpsert", testify_mock.Anything, testify_mock.Anything, "orders_clean",
		[]string{"order_id"}, testify_mock.Anything).
		Run(func(args testify_mock.Arguments) {
			upserted = args.Get(1).([]entity.OrderRecord)
		}).
		Return(int64(2), nil)

	// A1 appears twice; the later occurrence wins.
	result, err := newLoader(txManager).Load(context.Background(), []entity.OrderRecord{
		orderRecord("A1", 1, 10.00),
		orderRecord("A2", 2, 5.00),
		orderRecord("A1", 3, 10.00),
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	assert.Len(t, upserted, 2)
	assert.Equal(t, "A1", upserted[0].OrderID)
	assert.Equal(t, 3, upserted[0].Quantity)
	assert.Equal(t, 30.00, upserted[0].TotalPrice)
	assert.Equal(t, "A2", upserted[1].OrderID)

	txManager.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestLoadCountsUpdatesForExistingKeys(t *testing.T) {
	mockTx := new(MockTx)
	txManager := new(MockTxManager)
	txManager.On("Begin", testify_mock.Anything, testify_mock.Anything).Return(mockTx, nil)
	txManager.On("Commit", mockTx).Return(nil)

	// Re-running the same batch: both keys already exist.
	mockTx.On("SelectExistingKeys", testify_mock.Anything, "orders_clean", "order_id", []string{"A1", "A2"}).
		Return([]string{"A1", "A2"}, nil)
	mockTx.On("ExecuteUpsert", testify_mock.Anything, testify_mock.Anything, "orders_clean",
		[]string{"order_id"}, testify_mock.Anything).
		Return(int64(2), nil)

	result, err := newLoader(txManager).Load(context.Background(), []entity.OrderRecord{
		orderRecord("A1", 3, 10.00),
		orderRecord("A2", 2, 5.00),
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Updated)
}

func TestLoadRollsBackOnUpsertFailure(t *testing.T) {
	mockTx := new(MockTx)
	txManager := new(MockTxManager)
	txManager.On("Begin", testify_mock.Anything, testify_mock.Anything).Return(mockTx, nil)
	txManager.On("Rollback", mockTx).Return(nil)

	mockTx.On("SelectExistingKeys", testify_mock.Anything, "orders_clean", "order_id", []string{"A1"}).
		Return([]string{}, nil)
	mockTx.On("ExecuteUpsert", testify_mock.Anything, testify_mock.Anything, "orders_clean",
		[]string{"order_id"}, testify_mock.Anything).
		Return(int64(0), errors.New("connection reset"))

	_, err := newLoader(txManager).Load(context.Background(), []entity.OrderRecord{
		orderRecord("A1", 1, 10.00),
	})

	assert.Error(t, err)
	assert.True(t, exception.IsTemporary(err))
	txManager.AssertCalled(t, "Rollback", mockTx)
	txManager.AssertNotCalled(t, "Commit", testify_mock.Anything)
}

func TestLoadEmptyBatchSkipsTransaction(t *testing.T) {
	txManager := new(MockTxManager)

	result, err := newLoader(txManager).Load(context.Background(), nil)

	assert.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	txManager.AssertNotCalled(t, "Begin", testify_mock.Anything, testify_mock.Anything)
}
