// Package database provides the GORM-backed warehouse access layer:
// connection management, dialector selection per database type, and
// transaction-scoped write operations.
package database

import (
	"context"
	"database/sql"
)

// DBConnection represents one named database connection.
type DBConnection interface {
	// Close releases the underlying connection pool.
	Close() error
	// Type returns the database kind ("postgres", "mysql" or "sqlite").
	Type() string
	// Name returns the logical connection name (e.g. "warehouse").
	Name() string
	// GetSQLDB exposes the underlying *sql.DB, used by schema migration.
	GetSQLDB() (*sql.DB, error)
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// Tx is one open database transaction.
type Tx interface {
	// ExecuteUpsert merges the given model (an entity or slice of entities)
	// into tableName, keyed on conflictColumns. Non-empty updateColumns turn
	// conflicts into updates of those columns; otherwise conflicts are ignored.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
	// ExecuteUpdate runs a write operation ("CREATE", "UPDATE" or "DELETE")
	// against tableName with the model and optional query conditions.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)
	// SelectExistingKeys returns the values of keyColumn in tableName that
	// appear in the candidate set, observed inside this transaction.
	SelectExistingKeys(ctx context.Context, tableName, keyColumn string, candidates []string) ([]string, error)
	// SelectOne loads a single row matching query into target. It returns
	// false when no row matches.
	SelectOne(ctx context.Context, target interface{}, tableName string, query map[string]interface{}) (bool, error)
}

// TransactionManager begins and finishes transactions against one connection.
type TransactionManager interface {
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
}
