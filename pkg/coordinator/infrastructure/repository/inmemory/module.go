package inmemory

import (
	"go.uber.org/fx"

	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
)

// Module exports the in-memory CoordinatorRepository for dependency injection.
// Intended for single-process deployments and tests; swap in the gorm module
// for durable storage.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemoryCoordinatorRepository,
			fx.As(new(repository.CoordinatorRepository)),
		),
	),
)
