package execution

import (
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	monitor "github.com/pressflow/pacer/pkg/coordinator/core/monitor"
	"go.uber.org/fx"
)

// CallbackServiceParams defines dependencies for the CallbackService.
type CallbackServiceParams struct {
	fx.In
	Repo       repository.CoordinatorRepository
	Categories []*model.WorkCategory
	Monitor    *monitor.Monitor
	Recorder   metrics.MetricRecorder
}

// NewCallbackServiceProvider provides the executor CallbackService.
func NewCallbackServiceProvider(p CallbackServiceParams) *CallbackService {
	return NewCallbackService(p.Repo, p.Repo, p.Categories, p.Monitor, p.Recorder)
}

// Module provides the executor callback surface.
var Module = fx.Options(
	fx.Provide(NewCallbackServiceProvider),
)
