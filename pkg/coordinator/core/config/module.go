package config

import (
	"go.uber.org/fx"
)

// Module is the Fx module for configuration loading.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
)
