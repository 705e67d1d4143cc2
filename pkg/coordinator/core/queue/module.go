package queue

import (
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	"go.uber.org/fx"
)

// ServiceParams defines dependencies for the queue Service.
type ServiceParams struct {
	fx.In
	Repo     repository.CoordinatorRepository
	Cfg      *config.Config
	Recorder metrics.MetricRecorder
}

// NewServiceProvider provides the queue Service.
func NewServiceProvider(p ServiceParams) *Service {
	return NewService(p.Repo, p.Cfg.Pacer.Queue, p.Recorder)
}

// Module provides the work-queue service.
var Module = fx.Options(
	fx.Provide(NewServiceProvider),
)
