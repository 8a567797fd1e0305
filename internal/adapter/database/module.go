package database

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/ordersink/internal/config"
)

// NewWarehouseConnection opens the warehouse database connection and ties its
// lifetime to the Fx lifecycle.
func NewWarehouseConnection(lc fx.Lifecycle, cfg *config.Config) (DBConnection, error) {
	dbCfg, ok := cfg.Ordersink.Databases[config.WarehouseRef]
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found", config.WarehouseRef)
	}

	conn, err := NewGormConnection(dbCfg, config.WarehouseRef)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return conn.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return conn.Close()
		},
	})
	return conn, nil
}

// Module provides the warehouse connection and its transaction manager to Fx.
var Module = fx.Options(
	fx.Provide(NewWarehouseConnection),
	fx.Provide(NewGormTransactionManager),
)
