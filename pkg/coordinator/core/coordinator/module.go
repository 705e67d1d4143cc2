package coordinator

import (
	admission "github.com/pressflow/pacer/pkg/coordinator/core/admission"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	dispatch "github.com/pressflow/pacer/pkg/coordinator/core/dispatch"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	health "github.com/pressflow/pacer/pkg/coordinator/core/health"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	monitor "github.com/pressflow/pacer/pkg/coordinator/core/monitor"
	planner "github.com/pressflow/pacer/pkg/coordinator/core/planner"
	scheduler "github.com/pressflow/pacer/pkg/coordinator/core/scheduler"
	"go.uber.org/fx"
)

// CoordinatorParams defines dependencies for the Coordinator.
type CoordinatorParams struct {
	fx.In
	Cfg        *config.Config
	Repo       repository.CoordinatorRepository
	Gate       *health.Gate
	Scheduler  *scheduler.PriorityScheduler
	Admission  *admission.Controller
	Planner    *planner.Planner
	Dispatcher *dispatch.Dispatcher
	Monitor    *monitor.Monitor
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
}

// NewCoordinatorProvider provides the Coordinator.
func NewCoordinatorProvider(p CoordinatorParams) *Coordinator {
	return NewCoordinator(
		p.Cfg.Pacer.Coordinator,
		p.Repo,
		p.Gate,
		p.Scheduler,
		p.Admission,
		p.Planner,
		p.Dispatcher,
		p.Monitor,
		p.Recorder,
		p.Tracer,
	)
}

// Module provides the Coordinator.
var Module = fx.Options(
	fx.Provide(NewCoordinatorProvider),
)
