package admission

import (
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"go.uber.org/fx"
)

// ControllerParams defines dependencies for the admission Controller.
type ControllerParams struct {
	fx.In
	Repo       repository.CoordinatorRepository
	Categories []*model.WorkCategory
}

// NewControllerProvider provides the admission Controller.
func NewControllerProvider(p ControllerParams) *Controller {
	return NewController(p.Repo, p.Categories)
}

// Module provides the admission controller.
var Module = fx.Options(
	fx.Provide(NewControllerProvider),
)
