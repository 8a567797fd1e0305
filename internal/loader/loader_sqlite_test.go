package loader_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/tigerroll/ordersink/internal/adapter/database"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/loader"
)

const ordersCleanDDL = `CREATE TABLE orders_clean (
    order_id    VARCHAR(64) PRIMARY KEY,
    user_id     VARCHAR(64),
    product_id  VARCHAR(64),
    quantity    INTEGER NOT NULL DEFAULT 0,
    price       DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_price DOUBLE PRECISION NOT NULL DEFAULT 0,
    order_date  TIMESTAMP,
    status      VARCHAR(32)
)`

// setupSQLiteWarehouse opens a file-backed SQLite warehouse with the
// orders_clean table and returns a loader wired through the real GORM
// transaction adapter.
func setupSQLiteWarehouse(t *testing.T) (*gorm.DB, *loader.UpsertLoader) {
	gormDB, err := gorm.Open(
		sqlite.Open(filepath.Join(t.TempDir(), "warehouse.db")),
		&gorm.Config{Logger: gorm_logger.Default.LogMode(gorm_logger.Silent)},
	)
	assert.NoError(t, err)

	assert.NoError(t, gormDB.Exec(ordersCleanDDL).Error)

	conn := database.NewGormDBAdapter(gormDB, "sqlite", "warehouse_sqlite")
	txManager, err := database.NewGormTransactionManager(conn)
	assert.NoError(t, err)

	return gormDB, newLoader(txManager)
}

func selectOrders(t *testing.T, gormDB *gorm.DB) []entity.OrderRecord {
	var rows []entity.OrderRecord
	assert.NoError(t, gormDB.Table("orders_clean").Order("order_id").Find(&rows).Error)
	return rows
}

func TestSQLiteLoadIdempotentRerun(t *testing.T) {
	gormDB, l := setupSQLiteWarehouse(t)
	ctx := context.Background()

	batch := []entity.OrderRecord{
		orderRecord("A1", 2, 10.00),
		orderRecord("A2", 1, 5.00),
	}

	first, err := l.Load(ctx, batch)
	assert.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Updated)

	afterFirst := selectOrders(t, gormDB)
	assert.Len(t, afterFirst, 2)

	// Re-running the identical batch converges: no new rows, all updates.
	second, err := l.Load(ctx, batch)
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Updated)

	afterSecond := selectOrders(t, gormDB)
	assert.Len(t, afterSecond, 2)
	for i := range afterFirst {
		assert.Equal(t, afterFirst[i].OrderID, afterSecond[i].OrderID)
		assert.Equal(t, afterFirst[i].Quantity, afterSecond[i].Quantity)
		assert.Equal(t, afterFirst[i].Price, afterSecond[i].Price)
		assert.Equal(t, afterFirst[i].TotalPrice, afterSecond[i].TotalPrice)
		assert.Equal(t, afterFirst[i].Status, afterSecond[i].Status)
		assert.True(t, afterFirst[i].OrderDate.Equal(afterSecond[i].OrderDate))
	}
}

func TestSQLiteLoadMergeUpdatesExistingRow(t *testing.T) {
	gormDB, l := setupSQLiteWarehouse(t)
	ctx := context.Background()

	_, err := l.Load(ctx, []entity.OrderRecord{orderRecord("A1", 1, 10.00)})
	assert.NoError(t, err)

	// A1 exists with new values, A2 is fresh.
	result, err := l.Load(ctx, []entity.OrderRecord{
		orderRecord("A1", 4, 10.00),
		orderRecord("A2", 2, 5.00),
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	rows := selectOrders(t, gormDB)
	assert.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0].OrderID)
	assert.Equal(t, 4, rows[0].Quantity)
	assert.Equal(t, 40.00, rows[0].TotalPrice)
	assert.Equal(t, "A2", rows[1].OrderID)
	assert.Equal(t, 10.00, rows[1].TotalPrice)
}

func TestSQLiteLoadDuplicateKeysResolveToLater(t *testing.T) {
	gormDB, l := setupSQLiteWarehouse(t)

	result, err := l.Load(context.Background(), []entity.OrderRecord{
		orderRecord("A1", 2, 10.00),
		orderRecord("A1", 3, 10.00),
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	rows := selectOrders(t, gormDB)
	assert.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Quantity)
	assert.Equal(t, 30.00, rows[0].TotalPrice)
}
