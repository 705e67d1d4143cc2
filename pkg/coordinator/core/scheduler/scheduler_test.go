// Package scheduler_test provides unit tests for the priority scheduler's
// scoring, gating, and batch heuristics.
package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	scheduler "github.com/pressflow/pacer/pkg/coordinator/core/scheduler"
	inmemory "github.com/pressflow/pacer/pkg/coordinator/infrastructure/repository/inmemory"
)

// testNow is a Wednesday 10:00 UTC: business hours, not peak, not weekend,
// so the calendar adjustment is a fixed +5.
var testNow = time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)

func testCoordinatorConfig() config.CoordinatorConfig {
	return config.CoordinatorConfig{
		TickPeriodSeconds: 300,
		DispatchThreshold: 50,
	}
}

func contentCategory() *model.WorkCategory {
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

// seedOutcomes writes `succeeded` COMPLETED and `failed` FAILED records for
// the category, all finished at `completedAt`.
func seedOutcomes(t *testing.T, repo *inmemory.InMemoryCoordinatorRepository, category string, succeeded, failed int, completedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < succeeded; i++ {
		rec := model.NewExecutionRecord(category, 4, 60, 1, model.ResourceFootprint{}, completedAt, completedAt.Add(time.Hour), 0, "w")
		started := completedAt.Add(-time.Minute)
		rec.Status = model.ExecutionStatusCompleted
		rec.StartedAt = &started
		rec.CompletedAt = &completedAt
		assert.NoError(t, repo.SaveExecutionRecord(ctx, rec))
	}
	for i := 0; i < failed; i++ {
		rec := model.NewExecutionRecord(category, 4, 60, 1, model.ResourceFootprint{}, completedAt, completedAt.Add(time.Hour), 0, "w")
		rec.Status = model.ExecutionStatusFailed
		rec.CompletedAt = &completedAt
		assert.NoError(t, repo.SaveExecutionRecord(ctx, rec))
	}
}

func seedBacklog(t *testing.T, repo *inmemory.InMemoryCoordinatorRepository, category string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		assert.NoError(t, repo.EnqueueItem(ctx, model.NewQueueItem(category, 1, nil, 3)))
	}
}

func TestSchedule_OverdueReliableCategoryQualifies(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	cat := contentCategory()

	// Last run finished 20 minutes ago against a 15-minute interval (ratio
	// 1.33 -> +10), backlog of 30 (+10), business hours (+5), and a 0.95
	// trailing success rate (+10) on a base of 60.
	seedOutcomes(t, repo, "content", 19, 1, testNow.Add(-20*time.Minute))
	seedBacklog(t, repo, "content", 30)

	s := scheduler.NewPriorityScheduler(repo, repo, testCoordinatorConfig(), []*model.WorkCategory{cat}, time.UTC)
	candidates, err := s.Schedule(context.Background(), testNow)
	assert.NoError(t, err)
	assert.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "content", c.CategoryID)
	assert.InDelta(t, 95, c.Priority, 1e-9)
	assert.True(t, c.ShouldExecute)
	assert.Equal(t, 6, c.BatchSize, "generation heuristic: min(8, 30/5)")
	assert.InDelta(t, 2.1, c.EstimatedCost, 1e-9)
	assert.Equal(t, 270*time.Second, c.EstimatedDuration)
	assert.InDelta(t, 0.95, c.PredictedSuccessRate, 1e-9)
	assert.NotEmpty(t, c.Reasoning, "every candidate must carry its reasoning trace")
}

func TestSchedule_IntervalGateBlocksRecentRun(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	cat := contentCategory()

	// 12 minutes since the last run is below 90% of the 15-minute interval,
	// so the category must not run even with a qualifying priority.
	seedOutcomes(t, repo, "content", 19, 1, testNow.Add(-12*time.Minute))
	seedBacklog(t, repo, "content", 30)

	s := scheduler.NewPriorityScheduler(repo, repo, testCoordinatorConfig(), []*model.WorkCategory{cat}, time.UTC)
	candidates, err := s.Schedule(context.Background(), testNow)
	assert.NoError(t, err)
	assert.Len(t, candidates, 1)

	c := candidates[0]
	assert.False(t, c.ShouldExecute)
	assert.GreaterOrEqual(t, c.Priority, 50.0, "the skip is about recency, not priority")
}

func TestSchedule_SuccessFloorBlocksUnreliableCategory(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	cat := contentCategory()
	cat.SuccessFloor = 0.8

	// 7 of 10 succeeded: 0.70 is below both the 0.8 floor and the 0.8
	// reliability penalty threshold (-15).
	seedOutcomes(t, repo, "content", 7, 3, testNow.Add(-30*time.Minute))
	seedBacklog(t, repo, "content", 30)

	s := scheduler.NewPriorityScheduler(repo, repo, testCoordinatorConfig(), []*model.WorkCategory{cat}, time.UTC)
	candidates, err := s.Schedule(context.Background(), testNow)
	assert.NoError(t, err)

	c := candidates[0]
	assert.False(t, c.ShouldExecute)
	assert.InDelta(t, 0.70, c.PredictedSuccessRate, 1e-9)
	// base 60 + overdue 30 (ratio 2.0) + backlog 10 + calendar 5 - reliability 15
	assert.InDelta(t, 90, c.Priority, 1e-9)
}

func TestSchedule_NeverRanCategoryIsMaximallyOverdue(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	cat := contentCategory()
	seedBacklog(t, repo, "content", 10)

	s := scheduler.NewPriorityScheduler(repo, repo, testCoordinatorConfig(), []*model.WorkCategory{cat}, time.UTC)
	candidates, err := s.Schedule(context.Background(), testNow)
	assert.NoError(t, err)

	c := candidates[0]
	// base 60 + severe overdue 30 + backlog(10) 5 + calendar 5; no outcome
	// history means the success rate defaults to the category floor (0.85),
	// which earns neither bonus nor penalty.
	assert.InDelta(t, 100, c.Priority, 1e-9)
	assert.True(t, c.ShouldExecute)
	assert.InDelta(t, 0.85, c.PredictedSuccessRate, 1e-9)
}

func TestSchedule_EmptyBacklogYieldsNothingToBatch(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	cat := contentCategory()

	s := scheduler.NewPriorityScheduler(repo, repo, testCoordinatorConfig(), []*model.WorkCategory{cat}, time.UTC)
	candidates, err := s.Schedule(context.Background(), testNow)
	assert.NoError(t, err)

	c := candidates[0]
	assert.Equal(t, 0, c.BatchSize)
	assert.False(t, c.ShouldExecute, "a generation category with no backlog has nothing to run")
}

func TestSchedule_BatchHeuristicsPerKind(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()

	lightweight := &model.WorkCategory{
		ID: "thumbnail", BaseInterval: 30 * time.Minute, BasePriority: 45,
		MaxBatchSize: 20, CostPerItem: 0.02, SuccessFloor: 0.9,
		Kind: model.CategoryKindLightweight, SecondsPerItem: 5,
	}
	aggregator := &model.WorkCategory{
		ID: "digest", BaseInterval: 24 * time.Hour, BasePriority: 40,
		MaxBatchSize: 1, CostPerItem: 0.5, SuccessFloor: 0.8,
		Kind: model.CategoryKindAggregator, Aggregates: []string{"content", "thumbnail"},
		SecondsPerItem: 120,
	}

	seedBacklog(t, repo, "thumbnail", 12)
	seedBacklog(t, repo, "digest", 7)

	s := scheduler.NewPriorityScheduler(repo, repo, testCoordinatorConfig(),
		[]*model.WorkCategory{lightweight, aggregator}, time.UTC)
	candidates, err := s.Schedule(context.Background(), testNow)
	assert.NoError(t, err)

	byID := map[string]*model.SchedulingCandidate{}
	for _, c := range candidates {
		byID[c.CategoryID] = c
	}
	assert.Equal(t, 12, byID["thumbnail"].BatchSize, "lightweight heuristic: min(max, backlog)")
	assert.Equal(t, 1, byID["digest"].BatchSize, "aggregators run one summary unit per tick")
}

func TestSchedule_OrdersByPriorityDescending(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()

	high := contentCategory()
	low := contentCategory()
	low.ID = "thumbnail"
	low.BasePriority = 30

	seedBacklog(t, repo, "content", 30)
	seedBacklog(t, repo, "thumbnail", 30)

	s := scheduler.NewPriorityScheduler(repo, repo, testCoordinatorConfig(), []*model.WorkCategory{low, high}, time.UTC)
	candidates, err := s.Schedule(context.Background(), testNow)
	assert.NoError(t, err)
	assert.Len(t, candidates, 2)
	assert.Equal(t, "content", candidates[0].CategoryID)
	assert.Greater(t, candidates[0].Priority, candidates[1].Priority)
}
