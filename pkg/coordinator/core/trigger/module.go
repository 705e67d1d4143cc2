package trigger

import (
	"context"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	coordinator "github.com/pressflow/pacer/pkg/coordinator/core/coordinator"
	"go.uber.org/fx"
)

// TriggerParams defines dependencies for the Trigger.
type TriggerParams struct {
	fx.In
	Lifecycle   fx.Lifecycle
	Coordinator *coordinator.Coordinator
	Cfg         *config.Config
}

// NewTriggerProvider provides the Trigger hooked into the fx lifecycle:
// the timer starts with the application and drains on shutdown.
func NewTriggerProvider(p TriggerParams) *Trigger {
	t := New(p.Coordinator, p.Cfg.Pacer.Coordinator)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			t.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return t.Stop(ctx)
		},
	})
	return t
}

// Module provides the periodic tick trigger.
var Module = fx.Options(
	fx.Provide(NewTriggerProvider),
)
