// Package coordinator_test exercises the full tick pipeline over the
// in-memory repository: dispatch, skips, and the fault/cooldown path.
package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	admission "github.com/pressflow/pacer/pkg/coordinator/core/admission"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	coordinator "github.com/pressflow/pacer/pkg/coordinator/core/coordinator"
	dispatch "github.com/pressflow/pacer/pkg/coordinator/core/dispatch"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	health "github.com/pressflow/pacer/pkg/coordinator/core/health"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	monitor "github.com/pressflow/pacer/pkg/coordinator/core/monitor"
	planner "github.com/pressflow/pacer/pkg/coordinator/core/planner"
	queue "github.com/pressflow/pacer/pkg/coordinator/core/queue"
	scheduler "github.com/pressflow/pacer/pkg/coordinator/core/scheduler"
	inmemory "github.com/pressflow/pacer/pkg/coordinator/infrastructure/repository/inmemory"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

func tickConfig() config.CoordinatorConfig {
	return config.CoordinatorConfig{
		TickPeriodSeconds:         300,
		DispatchThreshold:         50,
		MaxConcurrentExecutions:   10,
		FailureWindowMinutes:      30,
		FailureThreshold:          5,
		CooldownSeconds:           600,
		StartOffsetGapSeconds:     30,
		WarningBacklogDepth:       200,
		WarningMeanLatencySeconds: 900,
	}
}

func tickCategory() *model.WorkCategory {
	return &model.WorkCategory{
		ID:              "content",
		BaseInterval:    15 * time.Minute,
		BasePriority:    60,
		MaxBatchSize:    8,
		CostPerItem:     0.35,
		SuccessFloor:    0.85,
		Kind:            model.CategoryKindGeneration,
		MemoryPerItemMB: 256,
		CallsPerItem:    4,
		SecondsPerItem:  45,
		Pools:           []string{"budget", "quota", "memory", "connections"},
	}
}

type fixture struct {
	repo *inmemory.InMemoryCoordinatorRepository
	c    *coordinator.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, []*model.WorkCategory{tickCategory()})
}

func newFixtureWith(t *testing.T, cats []*model.WorkCategory) *fixture {
	t.Helper()
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()

	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 10)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("quota", model.ResourceTypeQuota, 10000, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("memory", model.ResourceTypeMemory, 4096, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("connections", model.ResourceTypeConnections, 50, 0)))

	cfg := tickConfig()
	recorder := metrics.NewNoOpMetricRecorder()
	monitoring := config.MonitoringConfig{RecordTimeoutMinutes: 60}

	c := coordinator.NewCoordinator(
		cfg,
		repo,
		health.NewGate(repo, repo, cfg),
		scheduler.NewPriorityScheduler(repo, repo, cfg, cats, time.UTC),
		admission.NewController(repo, cats),
		planner.NewPlanner(cfg, cats),
		dispatch.NewDispatcher(repo, repo, cats, monitoring, recorder),
		monitor.NewMonitor(repo, monitoring, cats, nil, recorder),
		recorder,
		metrics.NewNoOpTracer(),
	)
	return &fixture{repo: repo, c: c}
}

func (f *fixture) seedBacklog(t *testing.T, n int) {
	t.Helper()
	f.seedCategoryBacklog(t, "content", n)
}

func (f *fixture) seedCategoryBacklog(t *testing.T, category string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		assert.NoError(t, f.repo.EnqueueItem(ctx, model.NewQueueItem(category, 1, nil, 3)))
	}
}

func (f *fixture) latestState(t *testing.T) model.CoordinatorState {
	t.Helper()
	latest, err := f.repo.FindLatestStateEntry(context.Background())
	assert.NoError(t, err)
	return latest.State
}

// seedState appends one entry with the given state, bypassing edge validation
// the way a crashed process would leave the log.
func seedState(t *testing.T, repo *inmemory.InMemoryCoordinatorRepository, state model.CoordinatorState, enteredAt time.Time) {
	t.Helper()
	entry := &model.CoordinatorStateEntry{
		ID:            model.NewID(),
		State:         state,
		PreviousState: model.StateIdle,
		EnteredAt:     enteredAt,
		Details:       model.NewExecutionContext(),
		CreateTime:    enteredAt,
	}
	assert.NoError(t, repo.AppendStateEntry(context.Background(), entry))
}

func TestRunTick_DispatchesAndReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	f.seedBacklog(t, 30)
	now := time.Now()

	result := f.c.RunTick(context.Background(), "worker-1", now)

	assert.NoError(t, result.Err)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, model.StateIdle, result.FinalState)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 1, result.FeasibleTasks)
	assert.Equal(t, 1, result.DispatchedTasks)
	assert.Greater(t, result.PlanCost, 0.0)

	// The state log walked the full cycle.
	entries, err := f.repo.FindStateEntriesSince(context.Background(), now.Add(-time.Minute))
	assert.NoError(t, err)
	var states []model.CoordinatorState
	for _, e := range entries {
		states = append(states, e.State)
	}
	assert.Equal(t, []model.CoordinatorState{
		model.StateAnalyzing, model.StateDispatching, model.StateMonitoring, model.StateIdle,
	}, states)

	active, err := f.repo.CountActiveExecutions(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestRunTick_EmptyBacklogEndsIdleWithoutDispatch(t *testing.T) {
	f := newFixture(t)

	result := f.c.RunTick(context.Background(), "worker-1", time.Now())

	assert.NoError(t, result.Err)
	assert.Equal(t, model.StateIdle, result.FinalState)
	assert.Zero(t, result.DispatchedTasks)

	active, err := f.repo.CountActiveExecutions(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, active)
}

func TestRunTick_HealthGateStopHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.seedBacklog(t, 30)
	ctx := context.Background()
	now := time.Now()

	// Fill the concurrency cap so the gate hard-stops.
	for i := 0; i < 10; i++ {
		rec := model.NewExecutionRecord("content", 1, 60, 1, model.ResourceFootprint{},
			now, now.Add(time.Hour), 0, "w")
		assert.NoError(t, f.repo.SaveExecutionRecord(ctx, rec))
	}

	result := f.c.RunTick(ctx, "worker-1", now)

	assert.Equal(t, coordinator.SkipHealthGate, result.Skipped)
	assert.Equal(t, string(health.StatusCritical), result.HealthStatus)
	assert.Zero(t, result.DispatchedTasks)

	// No state transition, no reservation, no new records.
	_, err := f.repo.FindLatestStateEntry(ctx)
	assert.ErrorIs(t, err, repository.ErrStateEntryNotFound)
	budget, _ := f.repo.FindPoolByName(ctx, "budget")
	assert.Equal(t, 0.0, budget.Used, "pool usage is untouched")
	active, _ := f.repo.CountActiveExecutions(ctx)
	assert.Equal(t, 10, active)
}

func TestRunTick_DispatchNeverExceedsConcurrencyCap(t *testing.T) {
	thumbnail := &model.WorkCategory{
		ID:              "thumbnail",
		BaseInterval:    15 * time.Minute,
		BasePriority:    55,
		MaxBatchSize:    10,
		CostPerItem:     0.02,
		SuccessFloor:    0.85,
		Kind:            model.CategoryKindLightweight,
		MemoryPerItemMB: 64,
		CallsPerItem:    1,
		SecondsPerItem:  5,
		Pools:           []string{"budget", "quota", "memory", "connections"},
	}
	f := newFixtureWith(t, []*model.WorkCategory{tickCategory(), thumbnail})
	f.seedCategoryBacklog(t, "content", 30)
	f.seedCategoryBacklog(t, "thumbnail", 30)
	ctx := context.Background()
	now := time.Now()

	// One slot below the cap: the gate lets the tick through, but only a single
	// task may dispatch even though both categories are feasible.
	for i := 0; i < 9; i++ {
		rec := model.NewExecutionRecord("content", 1, 60, 1, model.ResourceFootprint{},
			now, now.Add(time.Hour), 0, "w")
		assert.NoError(t, f.repo.SaveExecutionRecord(ctx, rec))
	}

	result := f.c.RunTick(ctx, "worker-1", now)

	assert.NoError(t, result.Err)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 2, result.FeasibleTasks)
	assert.Equal(t, 1, result.DispatchedTasks)

	active, err := f.repo.CountActiveExecutions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 10, active)
}

func TestRunTick_FaultEntersCooldownAndSubsequentTicksSkip(t *testing.T) {
	f := newFixture(t)
	f.seedBacklog(t, 30)
	ctx := context.Background()
	now := time.Now()

	// A terminal COMPLETED state in the log makes the ANALYZING edge invalid,
	// which is the deterministic way to force a mid-pipeline fault.
	seedState(t, f.repo, model.StateCompleted, now.Add(-time.Minute))

	result := f.c.RunTick(ctx, "worker-1", now)

	assert.Error(t, result.Err)
	assert.Equal(t, exception.KindValidation, exception.KindOf(result.Err))
	assert.Equal(t, model.StateCooldown, result.FinalState)
	assert.Equal(t, model.StateCooldown, f.latestState(t))
	assert.Zero(t, result.DispatchedTasks)

	// The next tick inside the 600-second window is refused.
	second := f.c.RunTick(ctx, "worker-1", time.Now().Add(time.Minute))
	assert.Equal(t, coordinator.SkipCooldown, second.Skipped)
	assert.Zero(t, second.DispatchedTasks)

	// Once the window elapses the pipeline runs again.
	third := f.c.RunTick(ctx, "worker-1", time.Now().Add(11*time.Minute))
	assert.NoError(t, third.Err)
	assert.Empty(t, third.Skipped)
	assert.Equal(t, model.StateIdle, third.FinalState)
	assert.Equal(t, 1, third.DispatchedTasks)
}

func TestRunTick_InFlightStateRefusesTick(t *testing.T) {
	f := newFixture(t)
	f.seedBacklog(t, 30)
	now := time.Now()

	// A crashed previous tick left the durable log mid-pipeline.
	seedState(t, f.repo, model.StateDispatching, now.Add(-time.Minute))

	result := f.c.RunTick(context.Background(), "worker-1", now)
	assert.Equal(t, coordinator.SkipInFlight, result.Skipped)
	assert.Zero(t, result.DispatchedTasks)
}

func TestRunTick_InterruptedRecoveryCompletesCooldownEdge(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	seedState(t, f.repo, model.StateErrorRecovery, now.Add(-time.Minute))

	result := f.c.RunTick(context.Background(), "worker-1", now)
	assert.Equal(t, coordinator.SkipCooldown, result.Skipped)
	assert.Equal(t, model.StateCooldown, result.FinalState)
	assert.Equal(t, model.StateCooldown, f.latestState(t))
}

func TestRunTick_QueueServiceKeepsWorkingDuringCooldown(t *testing.T) {
	f := newFixture(t)
	f.seedBacklog(t, 5)
	now := time.Now()
	seedState(t, f.repo, model.StateCooldown, now.Add(-time.Minute))

	// The tick is refused, but the work queue is independent of tick state.
	result := f.c.RunTick(context.Background(), "worker-1", now)
	assert.Equal(t, coordinator.SkipCooldown, result.Skipped)

	svc := queue.NewService(f.repo, config.QueueConfig{
		LockDurationMinutes: 30, MaxRetries: 3, BackoffScheduleSeconds: []int{60},
	}, metrics.NewNoOpMetricRecorder())
	items, err := svc.Claim(context.Background(), "worker-9", 3)
	assert.NoError(t, err)
	assert.Len(t, items, 3)
}
