package logger

import "go.uber.org/fx"

// Module is an Fx module that wires the pipeline logger in as the fx.Logger.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
