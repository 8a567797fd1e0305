package loader

import "go.uber.org/fx"

// Module provides the upsert loader to Fx.
var Module = fx.Options(
	fx.Provide(NewUpsertLoader),
)
