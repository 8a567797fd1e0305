// Package migration bootstraps the warehouse schema (orders_clean and
// ingest_runs) from embedded SQL migrations using golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/ordersink/internal/adapter/database"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationsPath is the embedded directory holding the SQL files.
const migrationsPath = "migrations"

// Migrator applies schema migrations against the warehouse.
type Migrator interface {
	// Up applies all pending migrations.
	Up(ctx context.Context) error
	// Down reverts the most recent migration. Kept for operational use; the
	// pipeline itself only calls Up.
	Down(ctx context.Context) error
}

type migratorImpl struct {
	dbConn database.DBConnection
	table  string
}

// NewMigrator creates a Migrator over the warehouse connection. table is the
// migrations bookkeeping table name.
func NewMigrator(dbConn database.DBConnection, table string) Migrator {
	return &migratorImpl{dbConn: dbConn, table: table}
}

// getDatabaseDriver retrieves a migrate/v4 Driver based on the database type.
func (m *migratorImpl) getDatabaseDriver(sqlDB *sql.DB) (migratedb.Driver, error) {
	switch m.dbConn.Type() {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: m.table})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: m.table})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: m.table})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbConn.Type())
	}
}

func (m *migratorImpl) getMigrateInstance() (*migrate.Migrate, error) {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	dbDriver, err := m.getDatabaseDriver(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbConn.Type(), dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, nil
}

func (m *migratorImpl) run(ctx context.Context, command string) error {
	logger.Infof("Executing migration '%s' (DB: %s, Table: %s)", command, m.dbConn.Type(), m.table)

	mInstance, err := m.getMigrateInstance()
	if err != nil {
		return err
	}
	defer mInstance.Close()

	var migrateErr error
	switch command {
	case "up":
		migrateErr = mInstance.Up()
	case "down":
		migrateErr = mInstance.Steps(-1)
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}

	if migrateErr != nil && migrateErr != migrate.ErrNoChange {
		return fmt.Errorf("migration failed for command '%s' (DB: %s): %w", command, m.dbConn.Type(), migrateErr)
	}

	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

func (m *migratorImpl) Up(ctx context.Context) error {
	return m.run(ctx, "up")
}

func (m *migratorImpl) Down(ctx context.Context) error {
	return m.run(ctx, "down")
}
