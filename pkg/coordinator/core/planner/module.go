package planner

import (
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"go.uber.org/fx"
)

// PlannerParams defines dependencies for the Planner.
type PlannerParams struct {
	fx.In
	Cfg        *config.Config
	Categories []*model.WorkCategory
}

// NewPlannerProvider provides the execution Planner.
func NewPlannerProvider(p PlannerParams) *Planner {
	return NewPlanner(p.Cfg.Pacer.Coordinator, p.Categories)
}

// Module provides the execution planner.
var Module = fx.Options(
	fx.Provide(NewPlannerProvider),
)
