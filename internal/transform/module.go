package transform

import "go.uber.org/fx"

// Module provides the order transformer to Fx.
var Module = fx.Options(
	fx.Provide(NewTransformer),
)
