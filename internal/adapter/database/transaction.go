package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTxAdapter implements Tx over a transaction-scoped *gorm.DB.
type GormTxAdapter struct {
	db *gorm.DB
}

// ExecuteUpsert implements Tx.
func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error) {
	db := t.db.WithContext(ctx)

	if tableName != "" {
		db = db.Table(tableName)
	}

	var columns []clause.Column
	for _, col := range conflictColumns {
		columns = append(columns, clause.Column{Name: col})
	}

	onConflict := clause.OnConflict{
		Columns: columns,
	}
	if len(updateColumns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		onConflict.DoNothing = true
	}

	result := db.Clauses(onConflict).Create(model)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExecuteUpdate implements Tx.
func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error) {
	db := t.db.WithContext(ctx)

	if tableName != "" {
		db = db.Table(tableName)
	}

	var result *gorm.DB
	switch operation {
	case "CREATE":
		result = db.Create(model)
	case "UPDATE":
		result = db.Model(model).Where(query).Updates(model)
	case "DELETE":
		if query != nil {
			db = db.Where(query)
		}
		result = db.Delete(model)
	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SelectExistingKeys implements Tx.
func (t *GormTxAdapter) SelectExistingKeys(ctx context.Context, tableName, keyColumn string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var keys []string
	err := t.db.WithContext(ctx).
		Table(tableName).
		Where(map[string]interface{}{keyColumn: candidates}).
		Distinct().
		Pluck(keyColumn, &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// SelectOne implements Tx.
func (t *GormTxAdapter) SelectOne(ctx context.Context, target interface{}, tableName string, query map[string]interface{}) (bool, error) {
	err := t.db.WithContext(ctx).
		Table(tableName).
		Where(query).
		Take(target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GormTransactionManager implements TransactionManager over one connection.
type GormTransactionManager struct {
	conn DBConnection
}

// NewGormTransactionManager creates a TransactionManager bound to conn.
func NewGormTransactionManager(conn DBConnection) (TransactionManager, error) {
	if _, ok := conn.(*GormDBAdapter); !ok {
		return nil, fmt.Errorf("internal error: DBConnection implementation is not *GormDBAdapter")
	}
	return &GormTransactionManager{conn: conn}, nil
}

func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error) {
	adapter := m.conn.(*GormDBAdapter)
	gormDB := adapter.GetGormDB().WithContext(ctx)

	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	gormTx := gormDB.Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{db: gormTx}, nil
}

func (m *GormTransactionManager) Commit(t Tx) error {
	gormTxAdapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTxAdapter.db.Commit().Error
}

func (m *GormTransactionManager) Rollback(t Tx) error {
	gormTxAdapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTxAdapter.db.Rollback().Error
}
