package logger

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Module is the Fx module for the logger.
var Module = fx.Options(
	fx.WithLogger(func() fxevent.Logger { return NewFxLoggerAdapter() }),
)
