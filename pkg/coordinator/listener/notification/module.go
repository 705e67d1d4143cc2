package notification

import (
	"go.uber.org/fx"

	"github.com/pressflow/pacer/pkg/coordinator/core/ports"
)

// Module provides notification-related components.
var Module = fx.Options(
	// Provides a concrete implementation of AlertNotifier.
	fx.Provide(fx.Annotate(
		NewLogNotifier,
		fx.As(new(ports.AlertNotifier)),
	)),
)
