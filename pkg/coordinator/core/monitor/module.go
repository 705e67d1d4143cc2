package monitor

import (
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	ports "github.com/pressflow/pacer/pkg/coordinator/core/ports"
	"go.uber.org/fx"
)

// MonitorParams defines dependencies for the Monitor.
type MonitorParams struct {
	fx.In
	Repo       repository.CoordinatorRepository
	Cfg        *config.Config
	Categories []*model.WorkCategory
	Notifier   ports.AlertNotifier `optional:"true"`
	Recorder   metrics.MetricRecorder
}

// NewMonitorProvider provides the Monitor.
func NewMonitorProvider(p MonitorParams) *Monitor {
	return NewMonitor(p.Repo, p.Cfg.Pacer.Monitoring, p.Categories, p.Notifier, p.Recorder)
}

// Module provides the monitor/alerting component.
var Module = fx.Options(
	fx.Provide(NewMonitorProvider),
)
