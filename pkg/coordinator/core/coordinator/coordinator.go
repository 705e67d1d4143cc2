package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	admission "github.com/pressflow/pacer/pkg/coordinator/core/admission"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	dispatch "github.com/pressflow/pacer/pkg/coordinator/core/dispatch"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	health "github.com/pressflow/pacer/pkg/coordinator/core/health"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	monitor "github.com/pressflow/pacer/pkg/coordinator/core/monitor"
	planner "github.com/pressflow/pacer/pkg/coordinator/core/planner"
	scheduler "github.com/pressflow/pacer/pkg/coordinator/core/scheduler"
	exception "github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Skip reasons reported on TickResult when the pipeline does not run.
const (
	SkipInFlight   = "tick already in flight"
	SkipCooldown   = "cooldown window active"
	SkipHealthGate = "health gate hard stop"
)

// Coordinator runs the tick pipeline: health gate, priority scheduling,
// admission control, planning, reservation and dispatch, state machine update,
// and monitoring. One tick is a single logical sequential pipeline; the
// single-flight guard refuses overlapping ticks.
type Coordinator struct {
	cfg        config.CoordinatorConfig
	repo       repository.CoordinatorRepository
	gate       *health.Gate
	scheduler  *scheduler.PriorityScheduler
	admission  *admission.Controller
	planner    *planner.Planner
	dispatcher *dispatch.Dispatcher
	monitor    *monitor.Monitor
	recorder   metrics.MetricRecorder
	tracer     metrics.Tracer

	inFlight atomic.Bool
	// latest caches the newest state entry; the durable log stays authoritative.
	latest *model.CoordinatorStateEntry
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	cfg config.CoordinatorConfig,
	repo repository.CoordinatorRepository,
	gate *health.Gate,
	sched *scheduler.PriorityScheduler,
	adm *admission.Controller,
	plan *planner.Planner,
	disp *dispatch.Dispatcher,
	mon *monitor.Monitor,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		repo:       repo,
		gate:       gate,
		scheduler:  sched,
		admission:  adm,
		planner:    plan,
		dispatcher: disp,
		monitor:    mon,
		recorder:   recorder,
		tracer:     tracer,
	}
}

// RunTick executes one full pipeline run. It is the single entry point invoked
// by the periodic trigger. A fault mid-pipeline transitions the state machine
// to ERROR_RECOVERY then COOLDOWN, and subsequent ticks are refused until the
// cooldown window elapses.
func (c *Coordinator) RunTick(ctx context.Context, workerID string, now time.Time) *model.TickResult {
	result := &model.TickResult{WorkerID: workerID, StartedAt: now}
	defer func() { result.FinishedAt = time.Now() }()

	// Single-flight guard, first line of defense before any store access.
	if !c.inFlight.CompareAndSwap(false, true) {
		result.Skipped = SkipInFlight
		logger.Warnf("Coordinator: refusing overlapping tick from worker '%s'.", workerID)
		return result
	}
	defer c.inFlight.Store(false)

	ctx, endTick := c.tracer.StartTickSpan(ctx, workerID)
	defer endTick()
	c.recorder.RecordTickStart(ctx, workerID)
	defer c.recorder.RecordTickEnd(ctx, result)

	if skip, err := c.resolveStartState(ctx, now, result); err != nil {
		return c.fault(ctx, result, err)
	} else if skip {
		return result
	}

	verdict, err := c.gate.Check(ctx, now)
	if err != nil {
		return c.fault(ctx, result, err)
	}
	result.HealthStatus = string(verdict.Status)
	if !verdict.CanProceed {
		// A hard stop ends the tick with no side effects beyond logging.
		result.Skipped = SkipHealthGate
		result.FinalState = c.currentState()
		return result
	}

	if err := c.transition(ctx, model.StateAnalyzing, nil); err != nil {
		return c.fault(ctx, result, err)
	}

	// The gate passed, so there is headroom; the plan must not outgrow it.
	remainingSlots := c.cfg.MaxConcurrentExecutions - verdict.ActiveExecutions
	plan, err := c.analyze(ctx, now, remainingSlots, result)
	if err != nil {
		return c.fault(ctx, result, err)
	}
	if plan.Empty() {
		logger.Infof("Coordinator: empty plan, nothing to dispatch this tick.")
		if err := c.transition(ctx, model.StateIdle, nil); err != nil {
			return c.fault(ctx, result, err)
		}
		result.FinalState = model.StateIdle
		return result
	}
	result.PlanCost = plan.TotalCost
	result.RiskFlags = plan.RiskFlags

	if err := c.transition(ctx, model.StateDispatching, nil); err != nil {
		return c.fault(ctx, result, err)
	}
	records, dispatchErr := c.dispatcher.Dispatch(ctx, plan, workerID, now)
	result.DispatchedTasks = len(records)
	if dispatchErr != nil {
		// Task-level dispatch errors are recovered locally; only a tick with
		// zero surviving records is treated as a tick-level fault.
		if len(records) == 0 {
			return c.fault(ctx, result, dispatchErr)
		}
		logger.Warnf("Coordinator: partial dispatch, %d task(s) skipped: %v", len(plan.Tasks)-len(records), dispatchErr)
	}

	if err := c.transition(ctx, model.StateMonitoring, nil); err != nil {
		return c.fault(ctx, result, err)
	}
	if _, err := c.monitor.SweepTimeouts(ctx, now); err != nil {
		logger.Errorf("Coordinator: timeout sweep reported errors: %v", err)
	}
	if _, _, err := c.monitor.Evaluate(ctx, now); err != nil {
		logger.Errorf("Coordinator: monitor evaluation reported errors: %v", err)
	}

	if err := c.transition(ctx, model.StateIdle, nil); err != nil {
		return c.fault(ctx, result, err)
	}
	result.FinalState = model.StateIdle
	logger.Infof("Coordinator: tick finished, dispatched %d task(s) (worker: %s).", result.DispatchedTasks, workerID)
	return result
}

// analyze runs scheduling, admission and planning, saving advisory
// recommendations along the way. maxTasks bounds the plan to the concurrency
// slots still free at the gate.
func (c *Coordinator) analyze(ctx context.Context, now time.Time, maxTasks int, result *model.TickResult) (*model.ExecutionPlan, error) {
	ctx, endStep := c.tracer.StartStepSpan(ctx, "analyze")
	defer endStep()

	candidates, err := c.scheduler.Schedule(ctx, now)
	if err != nil {
		return nil, err
	}
	result.Candidates = len(candidates)
	for _, cand := range candidates {
		logger.Debugf("Coordinator: candidate '%s': %v", cand.CategoryID, []string(cand.Reasoning))
	}

	admitted, recommendations, snapshot, err := c.admission.Admit(ctx, candidates)
	if err != nil {
		return nil, err
	}
	for _, rec := range recommendations {
		if err := c.repo.SaveRecommendation(ctx, rec); err != nil {
			logger.Errorf("Coordinator: failed to save recommendation: %v", err)
		}
	}
	feasible := 0
	for _, r := range admitted {
		if r.Feasible {
			feasible++
		}
	}
	result.FeasibleTasks = feasible

	return c.planner.BuildPlan(admitted, snapshot, maxTasks), nil
}

// resolveStartState loads the latest durable state and decides whether the
// tick may start. It finishes an interrupted recovery (ERROR_RECOVERY with no
// COOLDOWN yet) and leaves COOLDOWN once the window has elapsed.
func (c *Coordinator) resolveStartState(ctx context.Context, now time.Time, result *model.TickResult) (skip bool, err error) {
	latest, err := c.repo.FindLatestStateEntry(ctx)
	if err != nil && !errors.Is(err, repository.ErrStateEntryNotFound) {
		return false, err
	}
	c.latest = latest

	state := c.currentState()
	switch {
	case state.InFlight():
		// A previous tick is mid-pipeline (or crashed mid-pipeline); treat as
		// in flight and let the operator or the fault path resolve it.
		result.Skipped = SkipInFlight
		result.FinalState = state
		logger.Warnf("Coordinator: state machine is %s, refusing tick.", state)
		return true, nil
	case state == model.StateErrorRecovery:
		// Crash between ERROR_RECOVERY and COOLDOWN; complete the edge now.
		if err := c.transition(ctx, model.StateCooldown, nil); err != nil {
			return false, err
		}
		result.Skipped = SkipCooldown
		result.FinalState = model.StateCooldown
		return true, nil
	case state == model.StateCooldown:
		elapsed := now.Sub(c.latest.EnteredAt)
		window := time.Duration(c.cfg.CooldownSeconds) * time.Second
		if elapsed < window {
			result.Skipped = SkipCooldown
			result.FinalState = state
			logger.Infof("Coordinator: in cooldown for another %s, skipping tick.", window-elapsed)
			return true, nil
		}
		if err := c.transition(ctx, model.StateIdle, nil); err != nil {
			return false, err
		}
	}
	return false, nil
}

// transition appends one edge to the durable state log and advances the cache.
func (c *Coordinator) transition(ctx context.Context, next model.CoordinatorState, details model.ExecutionContext) error {
	entry, err := model.NewStateEntry(c.latest, next, time.Now(), details)
	if err != nil {
		return err
	}
	if err := c.repo.AppendStateEntry(ctx, entry); err != nil {
		return fmt.Errorf("coordinator: failed to append state entry %s -> %s: %w", entry.PreviousState, entry.State, err)
	}
	logger.Debugf("Coordinator: state %s -> %s.", entry.PreviousState, entry.State)
	c.latest = entry
	return nil
}

// fault aborts the remainder of the tick: it persists full diagnostic context
// on the ERROR_RECOVERY edge and immediately enters COOLDOWN.
func (c *Coordinator) fault(ctx context.Context, result *model.TickResult, cause error) *model.TickResult {
	result.Err = cause
	c.tracer.RecordError(ctx, "coordinator", cause)
	logger.Errorf("Coordinator: tick aborted by %s: %v", exception.KindOf(cause), cause)

	details := model.NewExecutionContext()
	details.Put("error", exception.ExtractErrorMessage(cause))
	details.Put("error_kind", string(exception.KindOf(cause)))
	details.Put("worker_id", result.WorkerID)

	if err := c.transition(ctx, model.StateErrorRecovery, details); err != nil {
		logger.Errorf("Coordinator: failed to persist ERROR_RECOVERY transition: %v", err)
		result.FinalState = c.currentState()
		return result
	}
	if err := c.transition(ctx, model.StateCooldown, nil); err != nil {
		logger.Errorf("Coordinator: failed to persist COOLDOWN transition: %v", err)
	}
	result.FinalState = c.currentState()
	return result
}

// currentState reports the cached state, defaulting to IDLE on a fresh store.
func (c *Coordinator) currentState() model.CoordinatorState {
	if c.latest == nil {
		return model.StateIdle
	}
	return c.latest.State
}
