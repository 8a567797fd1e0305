package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// DialectorFactory generates a gorm.Dialector from a config.DatabaseConfig.
type DialectorFactory func(cfg config.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// getDialectorFactory retrieves the DialectorFactory for the specified DB type.
func getDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

func init() {
	RegisterDialector("postgres", func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, orDefault(cfg.SSLMode, "disable"))
		return postgres.Open(dsn), nil
	})
	RegisterDialector("mysql", func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		return mysql.Open(dsn), nil
	})
	RegisterDialector("sqlite", func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, fmt.Errorf("sqlite requires a database file path")
		}
		return sqlite.Open(cfg.Database), nil
	})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// GormWriter redirects GORM log output to the pipeline logger.
type GormWriter struct{}

// Printf implements the gorm logger Writer interface.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	// Statement traces go to DEBUG, everything else to INFO.
	if strings.Contains(msg, "SELECT") || strings.Contains(msg, "INSERT") ||
		strings.Contains(msg, "UPDATE") || strings.Contains(msg, "DELETE") {
		logger.Debugf("[GORM] %s", msg)
	} else {
		logger.Infof("[GORM] %s", msg)
	}
}

// GormDBAdapter implements DBConnection on top of a *gorm.DB.
type GormDBAdapter struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	dbType string
	name   string
}

// NewGormConnection opens a named GORM connection according to its config.
func NewGormConnection(cfg config.DatabaseConfig, name string) (DBConnection, error) {
	dialectorFactory, err := getDialectorFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := dialectorFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Type, err)
	}

	gormConfig := &gorm.Config{
		Logger: gorm_logger.New(&GormWriter{}, gorm_logger.Config{
			LogLevel:                  gorm_logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection '%s': %w", name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB for '%s': %w", name, err)
	}

	logger.Infof("Established DB connection: %s (%s)", name, cfg.Type)
	return &GormDBAdapter{db: db, sqlDB: sqlDB, dbType: cfg.Type, name: name}, nil
}

// NewGormDBAdapter wraps an already opened *gorm.DB, used by tests.
func NewGormDBAdapter(db *gorm.DB, dbType, name string) DBConnection {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatalf("Failed to get underlying *sql.DB: %v", err)
	}
	return &GormDBAdapter{db: db, sqlDB: sqlDB, dbType: dbType, name: name}
}

// GetGormDB returns the underlying *gorm.DB instance.
// NOTE: intended for use within this package only.
func (a *GormDBAdapter) GetGormDB() *gorm.DB {
	return a.db
}

func (a *GormDBAdapter) Close() error {
	if a.sqlDB != nil {
		logger.Infof("Closing database connection '%s'...", a.name)
		return a.sqlDB.Close()
	}
	return nil
}

func (a *GormDBAdapter) Type() string {
	return a.dbType
}

func (a *GormDBAdapter) Name() string {
	return a.name
}

// GetSQLDB implements DBConnection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}

// Ping implements DBConnection.
func (a *GormDBAdapter) Ping(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}
