package telemetry

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/ordersink/internal/config"
)

// Module installs the telemetry providers and shuts them down with the app.
var Module = fx.Options(
	fx.Provide(func(lc fx.Lifecycle, cfg *config.Config) (*Providers, error) {
		providers, err := Setup(context.Background(), &cfg.Ordersink.Telemetry)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return providers.Shutdown(ctx)
			},
		})
		return providers, nil
	}),
)
