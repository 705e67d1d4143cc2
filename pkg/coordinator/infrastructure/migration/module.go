package migration

import (
	"context"

	"go.uber.org/fx"

	"github.com/pressflow/pacer/pkg/coordinator/adapter/database"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
)

// RunMigrations applies pending schema migrations to the coordinator store
// before the rest of the application starts.
func RunMigrations(lc fx.Lifecycle, resolver database.DBConnectionResolver, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			conn, err := resolver.ResolveDBConnection(ctx, cfg.Pacer.Infrastructure.CoordinatorDBRef)
			if err != nil {
				return err
			}
			return NewMigrator(conn).Up(ctx)
		},
	})
}

// Module runs schema migrations during application startup.
var Module = fx.Options(
	fx.Invoke(RunMigrations),
)
