package run

import (
	"go.uber.org/fx"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/loader"
	"github.com/tigerroll/ordersink/internal/metrics"
	"github.com/tigerroll/ordersink/internal/quality"
	"github.com/tigerroll/ordersink/internal/quarantine"
	"github.com/tigerroll/ordersink/internal/reader"
	"github.com/tigerroll/ordersink/internal/repository"
	"github.com/tigerroll/ordersink/internal/schema"
	"github.com/tigerroll/ordersink/internal/transform"
)

// Module provides the run Coordinator to Fx, binding the concrete pipeline
// components to the Coordinator's collaborator interfaces.
var Module = fx.Options(
	fx.Provide(func(
		batchReader *reader.BatchReader,
		validator *schema.Validator,
		transformer *transform.Transformer,
		gate *quality.Gate,
		upsertLoader *loader.UpsertLoader,
		exporter *quarantine.Writer,
		repo repository.RunRepository,
		recorder metrics.Recorder,
		cfg *config.PipelineConfig,
		source *config.SourceConfig,
	) *Coordinator {
		return NewCoordinator(batchReader, validator, transformer, gate, upsertLoader, exporter, repo, recorder, cfg, source)
	}),
)
