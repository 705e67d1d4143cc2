package main

import (
	"go.uber.org/fx"

	storageAdapter "github.com/pressflow/pacer/pkg/coordinator/adapter/storage"
	storageGCS "github.com/pressflow/pacer/pkg/coordinator/adapter/storage/gcs"
	storageLocal "github.com/pressflow/pacer/pkg/coordinator/adapter/storage/local"

	dbGorm "github.com/pressflow/pacer/pkg/coordinator/adapter/database/gorm"
	dbMySQL "github.com/pressflow/pacer/pkg/coordinator/adapter/database/gorm/mysql"
	dbPostgres "github.com/pressflow/pacer/pkg/coordinator/adapter/database/gorm/postgres"
	dbSQLite "github.com/pressflow/pacer/pkg/coordinator/adapter/database/gorm/sqlite"

	archive "github.com/pressflow/pacer/pkg/coordinator/component/archive"
	admission "github.com/pressflow/pacer/pkg/coordinator/core/admission"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	coordinator "github.com/pressflow/pacer/pkg/coordinator/core/coordinator"
	dispatch "github.com/pressflow/pacer/pkg/coordinator/core/dispatch"
	execution "github.com/pressflow/pacer/pkg/coordinator/core/execution"
	health "github.com/pressflow/pacer/pkg/coordinator/core/health"
	monitor "github.com/pressflow/pacer/pkg/coordinator/core/monitor"
	planner "github.com/pressflow/pacer/pkg/coordinator/core/planner"
	queue "github.com/pressflow/pacer/pkg/coordinator/core/queue"
	resources "github.com/pressflow/pacer/pkg/coordinator/core/resources"
	scheduler "github.com/pressflow/pacer/pkg/coordinator/core/scheduler"
	trigger "github.com/pressflow/pacer/pkg/coordinator/core/trigger"

	infraMetrics "github.com/pressflow/pacer/pkg/coordinator/infrastructure/metrics"
	migration "github.com/pressflow/pacer/pkg/coordinator/infrastructure/migration"
	gormRepo "github.com/pressflow/pacer/pkg/coordinator/infrastructure/repository/gorm"
	telemetry "github.com/pressflow/pacer/pkg/coordinator/infrastructure/telemetry"

	notification "github.com/pressflow/pacer/pkg/coordinator/listener/notification"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// GetApplicationOptions builds the full Fx option set for the coordinator
// process. Configuration must load before the graph is assembled because the
// log level applies globally.
func GetApplicationOptions(envFilePath string, embeddedConfig config.EmbeddedConfig) []fx.Option {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLogLevel(cfg.Pacer.System.Logging.Level)

	return []fx.Option{
		fx.Supply(cfg),

		logger.Module,
		infraMetrics.Module,
		telemetry.Module,

		// Persistence: dialect providers, resolver, migrations, repository.
		dbSQLite.Module,
		dbPostgres.Module,
		dbMySQL.Module,
		dbGorm.Module,
		migration.Module,
		gormRepo.Module,

		// Storage backends for the archive component.
		storageLocal.Module,
		storageGCS.Module,
		storageAdapter.Module,

		// Coordination pipeline.
		resources.Module,
		health.Module,
		scheduler.Module,
		admission.Module,
		planner.Module,
		dispatch.Module,
		queue.Module,
		monitor.Module,
		execution.Module,
		coordinator.Module,
		trigger.Module,

		notification.Module,
		archive.Module,
	}
}
