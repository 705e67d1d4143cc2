package scheduler

import (
	"time"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
	"go.uber.org/fx"
)

// SchedulerParams defines dependencies for the PriorityScheduler.
type SchedulerParams struct {
	fx.In
	Repo       repository.CoordinatorRepository
	Cfg        *config.Config
	Categories []*model.WorkCategory
}

// NewWorkCategories provides the configured work categories as domain values.
func NewWorkCategories(cfg *config.Config) []*model.WorkCategory {
	return BuildCategories(cfg)
}

// NewPrioritySchedulerProvider provides the PriorityScheduler.
func NewPrioritySchedulerProvider(p SchedulerParams) *PriorityScheduler {
	loc, err := time.LoadLocation(p.Cfg.Pacer.System.Timezone)
	if err != nil {
		logger.Warnf("Scheduler: unknown timezone '%s', falling back to UTC: %v", p.Cfg.Pacer.System.Timezone, err)
		loc = time.UTC
	}
	return NewPriorityScheduler(p.Repo, p.Repo, p.Cfg.Pacer.Coordinator, p.Categories, loc)
}

// Module provides the priority scheduler and the configured categories.
var Module = fx.Options(
	fx.Provide(NewWorkCategories),
	fx.Provide(NewPrioritySchedulerProvider),
)
