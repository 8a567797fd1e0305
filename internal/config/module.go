package config

import "go.uber.org/fx"

// NewPipelineConfigProvider extracts and provides *PipelineConfig from *Config.
// This allows pipeline stages to depend only on their own tunables.
func NewPipelineConfigProvider(cfg *Config) *PipelineConfig {
	return &cfg.Ordersink.Pipeline
}

// NewSourceConfigProvider extracts and provides *SourceConfig from *Config.
func NewSourceConfigProvider(cfg *Config) *SourceConfig {
	return &cfg.Ordersink.Source
}

// Module provides configuration-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewPipelineConfigProvider),
	fx.Provide(NewSourceConfigProvider),
)
