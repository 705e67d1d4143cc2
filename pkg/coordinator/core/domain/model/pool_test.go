// Package model_test provides unit tests for resource pool accounting.
package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
)

func TestResourcePool_StatusThresholds(t *testing.T) {
	pool := model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 10)

	assert.Equal(t, model.PoolStatusHealthy, pool.Status())

	pool.Used = 75 // above the 70% soft limit
	assert.Equal(t, model.PoolStatusWarning, pool.Status())

	pool.Used = 95 // above the 90% hard limit
	assert.Equal(t, model.PoolStatusCritical, pool.Status())

	pool.Available = false
	assert.Equal(t, model.PoolStatusUnavailable, pool.Status(), "unavailability dominates utilization")
}

func TestResourcePool_ConsecutiveErrorsMarkUnavailable(t *testing.T) {
	pool := model.NewResourcePool("quota", model.ResourceTypeQuota, 100, 0)
	pool.ConsecutiveErrors = 4
	assert.NotEqual(t, model.PoolStatusUnavailable, pool.Status())
	pool.ConsecutiveErrors = 5
	assert.Equal(t, model.PoolStatusUnavailable, pool.Status())
}

func TestResourcePool_CanReserveHonorsBurst(t *testing.T) {
	pool := model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 10)
	pool.Used = 95

	assert.True(t, pool.CanReserve(15), "capacity plus burst allows 110 total")
	assert.False(t, pool.CanReserve(15.01), "burst allowance is a hard bound")
	assert.True(t, pool.CanReserve(0))
}

func TestResourcePool_ReserveAndRelease(t *testing.T) {
	pool := model.NewResourcePool("memory", model.ResourceTypeMemory, 4096, 0)

	pool.Reserve(1024)
	assert.Equal(t, 1024.0, pool.Used)
	assert.Equal(t, 3072.0, pool.Remaining())

	pool.Release(2048)
	assert.Equal(t, 0.0, pool.Used, "release clamps at zero rather than going negative")
	assert.Equal(t, 4096.0, pool.Remaining())
}

func TestResourcePool_UtilizationWithZeroCapacity(t *testing.T) {
	pool := model.NewResourcePool("broken", model.ResourceTypeQuota, 0, 0)
	assert.Equal(t, 1.0, pool.Utilization(), "zero-capacity pools count as fully utilized")
	assert.Equal(t, 0.0, pool.Remaining())
}

func TestResourcePool_SnapshotIsolation(t *testing.T) {
	pool := model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 10)
	pool.Used = 40

	snap := pool.Snapshot()
	pool.Reserve(30)

	assert.Equal(t, 40.0, snap.Used, "snapshot does not see later reservations")
	assert.Equal(t, 70.0, pool.Used)
}
