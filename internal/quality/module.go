package quality

import "go.uber.org/fx"

// Module provides the quality gate to Fx.
var Module = fx.Options(
	fx.Provide(NewGate),
)
