package repository

import "go.uber.org/fx"

// Module provides the run repository to Fx.
var Module = fx.Options(
	fx.Provide(NewRunRepository),
)
