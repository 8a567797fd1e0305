// Package app assembles the ordersink application from its Fx modules and
// drives a single ingestion run to completion.
package app

import (
	"context"

	"go.uber.org/fx"

	dbadapter "github.com/tigerroll/ordersink/internal/adapter/database"
	storageadapter "github.com/tigerroll/ordersink/internal/adapter/storage"
	"github.com/tigerroll/ordersink/internal/adapter/storage/gcs"
	"github.com/tigerroll/ordersink/internal/adapter/storage/local"
	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/loader"
	"github.com/tigerroll/ordersink/internal/metrics"
	"github.com/tigerroll/ordersink/internal/migration"
	"github.com/tigerroll/ordersink/internal/quality"
	"github.com/tigerroll/ordersink/internal/quarantine"
	"github.com/tigerroll/ordersink/internal/reader"
	"github.com/tigerroll/ordersink/internal/repository"
	"github.com/tigerroll/ordersink/internal/run"
	"github.com/tigerroll/ordersink/internal/schema"
	"github.com/tigerroll/ordersink/internal/support/logger"
	"github.com/tigerroll/ordersink/internal/telemetry"
	"github.com/tigerroll/ordersink/internal/transform"
)

// RunApplication sets up and runs the ingestion application using uber-fx.
// The application performs one run of the pipeline and shuts itself down.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) {
	app := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),

		logger.Module,
		config.Module,
		telemetry.Module,
		metrics.Module,

		dbadapter.Module,
		storageadapter.Module,
		local.Module,
		gcs.Module,

		schema.Module,
		transform.Module,
		quality.Module,
		reader.Module,
		quarantine.Module,
		loader.Module,
		repository.Module,
		migration.Module,
		run.Module,

		fx.Invoke(fx.Annotate(startRunExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // coordinator *run.Coordinator
			`name:"appCtx"`, // appCtx context.Context
		))),
	)

	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// startRunExecution is invoked by Fx to begin the ingestion run once the
// application has started (after migrations have been applied).
func startRunExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	coordinator *run.Coordinator,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered during run execution: %v", r)
						exitCode = 1
					}
					logger.Infof("Requesting application shutdown after run completion.")
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Errorf("Failed to shut down application: %v", err)
					}
				}()

				result, err := coordinator.Execute(appCtx)
				if err != nil {
					logger.Errorf("Ingestion run failed: %v", err)
					exitCode = 1
				}
				if result != nil {
					logRunResult(result)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

// logRunResult emits the run summary at the end of the application's life.
func logRunResult(result *entity.RunResult) {
	logger.Infof("Run summary: run=%s batch='%s' status=%s total=%d inserted=%d updated=%d rejected=%d",
		result.RunID, result.BatchID, result.Status, result.RecordsTotal, result.Inserted, result.Updated, result.Rejected)
	if result.Status == entity.RunStatusFailed {
		logger.Errorf("Run failed at stage '%s': %s", result.FailureStage, result.FailureReason)
	}
}
