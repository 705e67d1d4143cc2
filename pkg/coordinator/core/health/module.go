package health

import (
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"go.uber.org/fx"
)

// GateParams defines dependencies for the health Gate.
type GateParams struct {
	fx.In
	Repo repository.CoordinatorRepository
	Cfg  *config.Config
}

// NewGateProvider provides the health Gate from the aggregate repository.
func NewGateProvider(p GateParams) *Gate {
	return NewGate(p.Repo, p.Repo, p.Cfg.Pacer.Coordinator)
}

// Module provides the health gate.
var Module = fx.Options(
	fx.Provide(NewGateProvider),
)
