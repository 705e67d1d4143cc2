// Package dispatch_test provides unit tests for reservation and dispatch,
// including compensating releases when a record write fails.
package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	dispatch "github.com/pressflow/pacer/pkg/coordinator/core/dispatch"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	inmemory "github.com/pressflow/pacer/pkg/coordinator/infrastructure/repository/inmemory"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

func monitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{RecordTimeoutMinutes: 60}
}

func dispatchCategory() *model.WorkCategory {
	return &model.WorkCategory{
		ID:              "content",
		BaseInterval:    15 * time.Minute,
		MaxBatchSize:    8,
		CostPerItem:     0.35,
		Kind:            model.CategoryKindGeneration,
		MemoryPerItemMB: 256,
		CallsPerItem:    4,
		Pools:           []string{"budget", "quota", "memory", "connections"},
	}
}

func seedPools(t *testing.T, repo *inmemory.InMemoryCoordinatorRepository) {
	t.Helper()
	ctx := context.Background()
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 10)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("quota", model.ResourceTypeQuota, 10000, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("memory", model.ResourceTypeMemory, 4096, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("connections", model.ResourceTypeConnections, 50, 0)))
}

func planOf(tasks ...*model.PlannedTask) *model.ExecutionPlan {
	plan := &model.ExecutionPlan{Tasks: tasks}
	for i, task := range tasks {
		task.ExecutionOrder = i + 1
		plan.TotalCost += task.EstimatedCost
	}
	return plan
}

func contentTask(batch int, offset time.Duration) *model.PlannedTask {
	cat := dispatchCategory()
	footprint := cat.FootprintFor(batch)
	footprint.Connections = 1
	return &model.PlannedTask{
		CategoryID:    "content",
		BatchSize:     batch,
		EstimatedCost: footprint.Cost,
		Footprint:     footprint,
		StartOffset:   offset,
		Priority:      95,
	}
}

func TestDispatch_CreatesPendingRecordsAndReserves(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	seedPools(t, repo)
	d := dispatch.NewDispatcher(repo, repo, []*model.WorkCategory{dispatchCategory()},
		monitoringConfig(), metrics.NewNoOpMetricRecorder())

	now := time.Now()
	records, err := d.Dispatch(context.Background(), planOf(contentTask(6, 0), contentTask(4, 30*time.Second)), "worker-1", now)
	assert.NoError(t, err)
	assert.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, model.ExecutionStatusPending, first.Status)
	assert.Equal(t, "worker-1", first.WorkerID)
	assert.Equal(t, now, first.ScheduledAt)
	assert.Equal(t, now.Add(time.Hour), first.TimeoutAt)
	assert.Equal(t, 30*time.Second, records[1].ScheduledAt.Sub(now), "start offsets shift the scheduled time")

	order, ok := first.InputContext.GetInt("execution_order")
	assert.True(t, ok)
	assert.Equal(t, 1, order)

	ctx := context.Background()
	budget, _ := repo.FindPoolByName(ctx, "budget")
	assert.InDelta(t, 3.5, budget.Used, 1e-9, "0.35 per item across both batches")
	quota, _ := repo.FindPoolByName(ctx, "quota")
	assert.InDelta(t, 40, quota.Used, 1e-9)
	memory, _ := repo.FindPoolByName(ctx, "memory")
	assert.InDelta(t, 2560, memory.Used, 1e-9)
	connections, _ := repo.FindPoolByName(ctx, "connections")
	assert.InDelta(t, 2, connections.Used, 1e-9, "one slot per task")
}

func TestDispatch_ExhaustedPoolSkipsTaskAndContinues(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()
	// Budget only fits the first task (cost 2.1 each, capacity 3, no burst).
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("budget", model.ResourceTypeBudget, 3, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("quota", model.ResourceTypeQuota, 10000, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("memory", model.ResourceTypeMemory, 4096, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("connections", model.ResourceTypeConnections, 50, 0)))

	d := dispatch.NewDispatcher(repo, repo, []*model.WorkCategory{dispatchCategory()},
		monitoringConfig(), metrics.NewNoOpMetricRecorder())

	records, err := d.Dispatch(context.Background(), planOf(contentTask(6, 0), contentTask(6, 30*time.Second)), "worker-1", time.Now())
	assert.Error(t, err, "the skipped task's fault is reported")
	assert.Len(t, records, 1, "the first task dispatched before the budget ran out")

	active, countErr := repo.CountActiveExecutions(ctx)
	assert.NoError(t, countErr)
	assert.Equal(t, 1, active)
}

func TestDispatch_PartialReservationReleasedOnFailure(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()
	// Budget admits the task but quota cannot: the budget reservation taken
	// first must be rolled back.
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("quota", model.ResourceTypeQuota, 10, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("memory", model.ResourceTypeMemory, 4096, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("connections", model.ResourceTypeConnections, 50, 0)))

	d := dispatch.NewDispatcher(repo, repo, []*model.WorkCategory{dispatchCategory()},
		monitoringConfig(), metrics.NewNoOpMetricRecorder())

	records, err := d.Dispatch(context.Background(), planOf(contentTask(6, 0)), "worker-1", time.Now())
	assert.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrPoolExhausted)
	assert.Empty(t, records)

	budget, _ := repo.FindPoolByName(ctx, "budget")
	assert.Equal(t, 0.0, budget.Used, "partial reservations must not leak")
}

// failingExecRepo wraps the in-memory repository and rejects record writes,
// standing in for a store outage at the worst possible moment.
type failingExecRepo struct {
	*inmemory.InMemoryCoordinatorRepository
}

func (r *failingExecRepo) SaveExecutionRecord(_ context.Context, _ *model.ExecutionRecord) error {
	return exception.NewSystemFaultError("test", "record store unavailable", nil)
}

func TestDispatch_CompensatingReleaseOnRecordWriteFailure(t *testing.T) {
	inner := inmemory.NewInMemoryCoordinatorRepository()
	seedPools(t, inner)
	d := dispatch.NewDispatcher(&failingExecRepo{inner}, inner, []*model.WorkCategory{dispatchCategory()},
		monitoringConfig(), metrics.NewNoOpMetricRecorder())

	records, err := d.Dispatch(context.Background(), planOf(contentTask(6, 0)), "worker-1", time.Now())
	assert.Error(t, err)
	assert.Empty(t, records)

	ctx := context.Background()
	for _, name := range []string{"budget", "quota", "memory", "connections"} {
		pool, findErr := inner.FindPoolByName(ctx, name)
		assert.NoError(t, findErr)
		assert.Equal(t, 0.0, pool.Used, "pool '%s' must be released after the failed write", name)
	}
}

func TestReleaseAllocation_TransientCapacityOnly(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	seedPools(t, repo)
	ctx := context.Background()
	cat := dispatchCategory()

	footprint := cat.FootprintFor(6)
	footprint.Connections = 1
	for _, name := range cat.Pools {
		pool, err := repo.FindPoolByName(ctx, name)
		assert.NoError(t, err)
		assert.NoError(t, repo.ReservePool(ctx, name, footprint.AmountFor(pool.Type)))
	}

	record := model.NewExecutionRecord("content", 6, 95, footprint.Cost, footprint,
		time.Now(), time.Now().Add(time.Hour), 0, "worker-1")
	dispatch.ReleaseAllocation(ctx, repo, cat, record)

	budget, _ := repo.FindPoolByName(ctx, "budget")
	assert.InDelta(t, 2.1, budget.Used, 1e-9, "spent budget is consumed for good")
	quota, _ := repo.FindPoolByName(ctx, "quota")
	assert.InDelta(t, 24, quota.Used, 1e-9, "consumed quota does not come back")
	memory, _ := repo.FindPoolByName(ctx, "memory")
	assert.Equal(t, 0.0, memory.Used, "memory returns on completion")
	connections, _ := repo.FindPoolByName(ctx, "connections")
	assert.Equal(t, 0.0, connections.Used, "connection slots return on completion")
}

func TestDispatch_EmptyPlanIsNoOp(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	d := dispatch.NewDispatcher(repo, repo, nil, monitoringConfig(), metrics.NewNoOpMetricRecorder())

	records, err := d.Dispatch(context.Background(), &model.ExecutionPlan{}, "worker-1", time.Now())
	assert.NoError(t, err)
	assert.Empty(t, records)
}
