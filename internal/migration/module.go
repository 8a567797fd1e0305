package migration

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/ordersink/internal/adapter/database"
	"github.com/tigerroll/ordersink/internal/config"
)

// Module provides the migrator and, when enabled, applies pending migrations
// on application start before any batch work begins.
var Module = fx.Options(
	fx.Provide(func(dbConn database.DBConnection, cfg *config.Config) Migrator {
		return NewMigrator(dbConn, cfg.Ordersink.Migration.Table)
	}),
	fx.Invoke(func(lc fx.Lifecycle, migrator Migrator, cfg *config.Config) {
		if !cfg.Ordersink.Migration.Enabled {
			return
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return migrator.Up(ctx)
			},
		})
	}),
)
