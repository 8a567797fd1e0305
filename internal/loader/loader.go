// Package loader merges cleaned order records into the orders_clean warehouse
// table. Each batch loads in a single transaction with idempotent upsert
// semantics keyed on order_id: the table is either advanced by the whole
// batch or left untouched.
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerroll/ordersink/internal/adapter/database"
	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

const moduleName = "loader"

// conflictColumns is the upsert key of orders_clean.
var conflictColumns = []string{"order_id"}

// updateColumns are the columns overwritten when an order_id already exists.
var updateColumns = []string{
	"user_id",
	"product_id",
	"quantity",
	"price",
	"total_price",
	"order_date",
	"status",
}

// LoadResult reports how a load changed the warehouse.
type LoadResult struct {
	// Inserted is the number of rows newly created.
	Inserted int
	// Updated is the number of pre-existing rows overwritten by the merge.
	Updated int
}

// UpsertLoader loads batches into orders_clean. Whole-batch loads are
// serialized by a mutex; concurrent callers queue rather than interleave.
type UpsertLoader struct {
	txManager database.TransactionManager
	timeout   time.Duration
	mu        sync.Mutex
}

// NewUpsertLoader creates an UpsertLoader over the warehouse transaction
// manager and pipeline configuration.
func NewUpsertLoader(txManager database.TransactionManager, cfg *config.PipelineConfig) *UpsertLoader {
	return &UpsertLoader{
		txManager: txManager,
		timeout:   time.Duration(cfg.LoadTimeoutSeconds) * time.Second,
	}
}

// Load merges the given orders into orders_clean inside one transaction.
// In-batch duplicate order_ids collapse to the later record before the merge,
// so the batch carries at most one row per key. Any error rolls the
// transaction back and leaves the table unchanged; the error is retryable
// from the caller's point of view because re-running converges by upsert
// idempotence.
func (l *UpsertLoader) Load(ctx context.Context, orders []entity.OrderRecord) (LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(orders) == 0 {
		logger.Infof("Load skipped: batch carries no loadable records.")
		return LoadResult{}, nil
	}

	deduped := dedupeLastWins(orders)
	if dropped := len(orders) - len(deduped); dropped > 0 {
		logger.Infof("Collapsed %d duplicate order_id occurrences before merge (%d unique keys).", dropped, len(deduped))
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tx, err := l.txManager.Begin(ctx)
	if err != nil {
		return LoadResult{}, exception.NewPipelineError(moduleName, "failed to begin load transaction", err, false, true)
	}

	result, err := l.loadInTx(ctx, tx, deduped)
	if err != nil {
		if rbErr := l.txManager.Rollback(tx); rbErr != nil {
			logger.Errorf("Failed to roll back load transaction: %v", rbErr)
		}
		return LoadResult{}, err
	}

	if err := l.txManager.Commit(tx); err != nil {
		return LoadResult{}, exception.NewPipelineError(moduleName, "failed to commit load transaction", err, false, true)
	}

	logger.Infof("Loaded batch into %s: %d inserted, %d updated.", entity.OrderRecord{}.TableName(), result.Inserted, result.Updated)
	return result, nil
}

// loadInTx performs the key lookup and the merge inside an open transaction.
// Existing keys are selected first so the result can distinguish inserts from
// updates; the ON CONFLICT merge itself does not report which path each row took.
func (l *UpsertLoader) loadInTx(ctx context.Context, tx database.Tx, orders []entity.OrderRecord) (LoadResult, error) {
	tableName := entity.OrderRecord{}.TableName()

	keys := make([]string, len(orders))
	for i, order := range orders {
		keys[i] = order.OrderID
	}

	existing, err := tx.SelectExistingKeys(ctx, tableName, "order_id", keys)
	if err != nil {
		return LoadResult{}, exception.NewPipelineError(moduleName, "failed to select existing order keys", err, false, true)
	}

	if _, err := tx.ExecuteUpsert(ctx, orders, tableName, conflictColumns, updateColumns); err != nil {
		return LoadResult{}, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to upsert %d orders into %s", len(orders), tableName), err, false, true)
	}

	return LoadResult{
		Inserted: len(orders) - len(existing),
		Updated:  len(existing),
	}, nil
}

// dedupeLastWins collapses duplicate order_ids to the later occurrence,
// keeping first-appearance order of the keys.
func dedupeLastWins(orders []entity.OrderRecord) []entity.OrderRecord {
	latest := make(map[string]entity.OrderRecord, len(orders))
	order := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, seen := latest[o.OrderID]; !seen {
			order = append(order, o.OrderID)
		}
		latest[o.OrderID] = o
	}

	deduped := make([]entity.OrderRecord, 0, len(order))
	for _, id := range order {
		deduped = append(deduped, latest[id])
	}
	return deduped
}
