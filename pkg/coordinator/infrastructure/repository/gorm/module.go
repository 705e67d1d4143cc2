package gorm

import (
	"go.uber.org/fx"

	"github.com/pressflow/pacer/pkg/coordinator/adapter/database"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
)

// NewCoordinatorRepositoryProvider builds the GORM-backed coordinator store on
// the connection named by pacer.infrastructure.coordinator_db_ref.
func NewCoordinatorRepositoryProvider(resolver database.DBConnectionResolver, cfg *config.Config) repository.CoordinatorRepository {
	return NewGormCoordinatorRepository(resolver, cfg.Pacer.Infrastructure.CoordinatorDBRef)
}

// Module exports the GORM-backed CoordinatorRepository for dependency injection.
var Module = fx.Options(
	fx.Provide(NewCoordinatorRepositoryProvider),
)
