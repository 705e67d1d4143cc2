package dispatch

import (
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	"go.uber.org/fx"
)

// DispatcherParams defines dependencies for the Dispatcher.
type DispatcherParams struct {
	fx.In
	Repo       repository.CoordinatorRepository
	Cfg        *config.Config
	Categories []*model.WorkCategory
	Recorder   metrics.MetricRecorder
}

// NewDispatcherProvider provides the Dispatcher.
func NewDispatcherProvider(p DispatcherParams) *Dispatcher {
	return NewDispatcher(p.Repo, p.Repo, p.Categories, p.Cfg.Pacer.Monitoring, p.Recorder)
}

// Module provides the reservation and dispatch step.
var Module = fx.Options(
	fx.Provide(NewDispatcherProvider),
)
