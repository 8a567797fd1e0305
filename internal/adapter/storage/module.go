package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/ordersink/internal/config"
)

// Module provides the storage provider to Fx and closes its connections on
// shutdown.
var Module = fx.Options(
	fx.Provide(func(lc fx.Lifecycle, cfg *config.Config) StorageProvider {
		provider := NewProvider(cfg)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.CloseAll()
			},
		})
		return provider
	}),
)
