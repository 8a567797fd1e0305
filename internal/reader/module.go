package reader

import "go.uber.org/fx"

// Module provides the batch reader to Fx.
var Module = fx.Options(
	fx.Provide(NewBatchReader),
)
