package health

import (
	"context"
	"fmt"
	"time"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Status is the overall health verdict of the gate.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Violation describes one hard limit the system is currently breaking.
type Violation struct {
	Rule    string
	Message string
	Value   float64
	Limit   float64
}

// Verdict is the result of one gate check. Hard stops set CanProceed=false;
// soft signals are surfaced as warnings only and never block a tick.
// ActiveExecutions carries the concurrency count measured at the gate so the
// rest of the tick can bound new work against the same snapshot.
type Verdict struct {
	CanProceed       bool
	Status           Status
	ActiveExecutions int
	Violations       []Violation
	Warnings         []string
}

// Gate is the first step of every tick. It refuses to proceed when system-wide
// limits are already violated, before any other step consumes resources.
type Gate struct {
	execRepo  repository.ExecutionRecordRepository
	queueRepo repository.QueueRepository
	cfg       config.CoordinatorConfig
}

// NewGate creates a health Gate over the execution and queue stores.
func NewGate(execRepo repository.ExecutionRecordRepository, queueRepo repository.QueueRepository, cfg config.CoordinatorConfig) *Gate {
	return &Gate{
		execRepo:  execRepo,
		queueRepo: queueRepo,
		cfg:       cfg,
	}
}

// Check evaluates the gate at `now`. A hard stop ends the tick with no side
// effects beyond logging; soft signals ride along on the verdict.
func (g *Gate) Check(ctx context.Context, now time.Time) (*Verdict, error) {
	verdict := &Verdict{CanProceed: true, Status: StatusHealthy}

	active, err := g.execRepo.CountActiveExecutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("health gate: failed to count active executions: %w", err)
	}
	verdict.ActiveExecutions = active
	if active >= g.cfg.MaxConcurrentExecutions {
		verdict.Violations = append(verdict.Violations, Violation{
			Rule:    "max_concurrent_executions",
			Message: fmt.Sprintf("active execution count %d has reached the concurrency cap %d", active, g.cfg.MaxConcurrentExecutions),
			Value:   float64(active),
			Limit:   float64(g.cfg.MaxConcurrentExecutions),
		})
	}

	windowStart := now.Add(-time.Duration(g.cfg.FailureWindowMinutes) * time.Minute)
	failures, err := g.execRepo.CountFailuresSince(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("health gate: failed to count recent failures: %w", err)
	}
	if failures > g.cfg.FailureThreshold {
		verdict.Violations = append(verdict.Violations, Violation{
			Rule:    "failure_threshold",
			Message: fmt.Sprintf("%d failures in the trailing %dm window exceed the threshold %d", failures, g.cfg.FailureWindowMinutes, g.cfg.FailureThreshold),
			Value:   float64(failures),
			Limit:   float64(g.cfg.FailureThreshold),
		})
	}

	// Soft signals. These never block.
	backlog, err := g.queueRepo.TotalBacklog(ctx)
	if err != nil {
		return nil, fmt.Errorf("health gate: failed to count backlog: %w", err)
	}
	if backlog > g.cfg.WarningBacklogDepth {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("backlog depth %d exceeds warning threshold %d", backlog, g.cfg.WarningBacklogDepth))
	}

	meanAge, err := g.queueRepo.MeanBacklogAge(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("health gate: failed to compute mean backlog age: %w", err)
	}
	if meanAge > time.Duration(g.cfg.WarningMeanLatencySeconds)*time.Second {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("mean backlog wait %s exceeds warning threshold %ds", meanAge, g.cfg.WarningMeanLatencySeconds))
	}

	if len(verdict.Violations) > 0 {
		verdict.CanProceed = false
		verdict.Status = StatusCritical
		for _, v := range verdict.Violations {
			logger.Warnf("HealthGate: hard stop (%s): %s", v.Rule, v.Message)
		}
	} else if len(verdict.Warnings) > 0 {
		verdict.Status = StatusWarning
		for _, w := range verdict.Warnings {
			logger.Infof("HealthGate: warning: %s", w)
		}
	}
	return verdict, nil
}
