package quarantine

import "go.uber.org/fx"

// Module provides the quarantine writer to Fx.
var Module = fx.Options(
	fx.Provide(NewWriter),
)
