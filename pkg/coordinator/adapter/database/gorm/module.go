package gorm

import (
	"go.uber.org/fx"

	"github.com/pressflow/pacer/pkg/coordinator/adapter/database"
)

// Module provides the GORM connection resolver. Dialect-specific providers
// register themselves via their own modules (sqlite, postgres, mysql).
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
	)),
)
