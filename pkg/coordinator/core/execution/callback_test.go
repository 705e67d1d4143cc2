// Package execution_test provides unit tests for the executor callback
// surface: RUNNING transitions, terminal persistence, and allocation release.
package execution_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	execution "github.com/pressflow/pacer/pkg/coordinator/core/execution"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	monitor "github.com/pressflow/pacer/pkg/coordinator/core/monitor"
	inmemory "github.com/pressflow/pacer/pkg/coordinator/infrastructure/repository/inmemory"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

func callbackCategory() *model.WorkCategory {
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

type callbackFixture struct {
	repo *inmemory.InMemoryCoordinatorRepository
	mon  *monitor.Monitor
	svc  *execution.CallbackService
}

func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("quota", model.ResourceTypeQuota, 10000, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("memory", model.ResourceTypeMemory, 4096, 0)))
	assert.NoError(t, repo.SavePool(ctx, model.NewResourcePool("connections", model.ResourceTypeConnections, 50, 0)))

	cats := []*model.WorkCategory{callbackCategory()}
	mon := monitor.NewMonitor(repo, config.MonitoringConfig{RecordTimeoutMinutes: 60}, cats, nil, metrics.NewNoOpMetricRecorder())
	svc := execution.NewCallbackService(repo, repo, cats, mon, metrics.NewNoOpMetricRecorder())
	return &callbackFixture{repo: repo, mon: mon, svc: svc}
}

// dispatchRecord seeds a pending record whose footprint is reserved against
// the pools, the way the dispatcher leaves it.
func (f *callbackFixture) dispatchRecord(t *testing.T, batch int) *model.ExecutionRecord {
	t.Helper()
	ctx := context.Background()
	cat := callbackCategory()
	footprint := cat.FootprintFor(batch)
	footprint.Connections = 1
	for _, name := range cat.Pools {
		pool, err := f.repo.FindPoolByName(ctx, name)
		assert.NoError(t, err)
		assert.NoError(t, f.repo.ReservePool(ctx, name, footprint.AmountFor(pool.Type)))
	}
	now := time.Now()
	record := model.NewExecutionRecord("content", batch, 95, footprint.Cost, footprint,
		now, now.Add(time.Hour), 0, "worker-1")
	assert.NoError(t, f.repo.SaveExecutionRecord(ctx, record))
	return record
}

func TestMarkRunning(t *testing.T) {
	f := newCallbackFixture(t)
	record := f.dispatchRecord(t, 6)
	ctx := context.Background()

	assert.NoError(t, f.svc.MarkRunning(ctx, record.ID, "executor-7"))

	stored, err := f.repo.FindExecutionRecordByID(ctx, record.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusRunning, stored.Status)
	assert.Equal(t, "executor-7", stored.WorkerID)
	assert.NotNil(t, stored.StartedAt)
}

func TestMarkRunning_UnknownRecord(t *testing.T) {
	f := newCallbackFixture(t)
	err := f.svc.MarkRunning(context.Background(), "no-such-record", "executor-7")
	assert.ErrorIs(t, err, repository.ErrExecutionRecordNotFound)
}

func TestCompleteRecord_PersistsAndReleasesTransientCapacity(t *testing.T) {
	f := newCallbackFixture(t)
	record := f.dispatchRecord(t, 6)
	ctx := context.Background()
	assert.NoError(t, f.svc.MarkRunning(ctx, record.ID, "executor-7"))

	output := model.NewExecutionContext()
	output.Put("items_produced", 6)
	assert.NoError(t, f.svc.CompleteRecord(ctx, record.ID, 1.95, output))

	stored, err := f.repo.FindExecutionRecordByID(ctx, record.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusCompleted, stored.Status)
	assert.Equal(t, 1.95, stored.CostActual)
	assert.NotNil(t, stored.CompletedAt)

	// Memory and connection slots return; spent budget and quota stay consumed.
	memory, _ := f.repo.FindPoolByName(ctx, "memory")
	assert.Equal(t, 0.0, memory.Used)
	connections, _ := f.repo.FindPoolByName(ctx, "connections")
	assert.Equal(t, 0.0, connections.Used)
	budget, _ := f.repo.FindPoolByName(ctx, "budget")
	assert.InDelta(t, 2.1, budget.Used, 1e-9)
	quota, _ := f.repo.FindPoolByName(ctx, "quota")
	assert.InDelta(t, 24, quota.Used, 1e-9)

	// The outcome reaches the rolling windows.
	stats := f.mon.Stats("content", 5*time.Minute, time.Now())
	assert.Equal(t, 1, stats.Throughput)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestFailRecord_CapturesErrorAndFeedsWindows(t *testing.T) {
	f := newCallbackFixture(t)
	record := f.dispatchRecord(t, 6)
	ctx := context.Background()
	assert.NoError(t, f.svc.MarkRunning(ctx, record.ID, "executor-7"))

	assert.NoError(t, f.svc.FailRecord(ctx, record.ID, errors.New("generation backend 502")))

	stored, err := f.repo.FindExecutionRecordByID(ctx, record.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorDetail, "generation backend 502")

	memory, _ := f.repo.FindPoolByName(ctx, "memory")
	assert.Equal(t, 0.0, memory.Used, "failed work still returns its transient allocation")

	stats := f.mon.Stats("content", 5*time.Minute, time.Now())
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
}

func TestCancelRecord_BeforeStart(t *testing.T) {
	f := newCallbackFixture(t)
	record := f.dispatchRecord(t, 6)
	ctx := context.Background()

	assert.NoError(t, f.svc.CancelRecord(ctx, record.ID, "operator withdrew the batch"))

	stored, err := f.repo.FindExecutionRecordByID(ctx, record.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusCancelled, stored.Status)

	connections, _ := f.repo.FindPoolByName(ctx, "connections")
	assert.Equal(t, 0.0, connections.Used)
}

func TestCompleteRecord_RejectsNonRunningRecord(t *testing.T) {
	f := newCallbackFixture(t)
	record := f.dispatchRecord(t, 6)
	ctx := context.Background()

	// PENDING cannot complete without passing through RUNNING.
	err := f.svc.CompleteRecord(ctx, record.ID, 1.0, model.NewExecutionContext())
	assert.Error(t, err)
	assert.Equal(t, exception.KindValidation, exception.KindOf(err))

	// The failed transition must not touch the pools.
	memory, _ := f.repo.FindPoolByName(ctx, "memory")
	assert.InDelta(t, 1536, memory.Used, 1e-9)
}
