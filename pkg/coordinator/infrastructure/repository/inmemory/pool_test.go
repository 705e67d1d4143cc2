// Package inmemory_test provides unit tests for resource pool reservations.
package inmemory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	inmemory "github.com/pressflow/pacer/pkg/coordinator/infrastructure/repository/inmemory"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

func TestReservePool_GuardedByCapacityPlusBurst(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()

	pool := model.NewResourcePool("budget", model.ResourceTypeBudget, 100, 10)
	assert.NoError(t, repo.SavePool(ctx, pool))

	assert.NoError(t, repo.ReservePool(ctx, "budget", 100))
	assert.NoError(t, repo.ReservePool(ctx, "budget", 10), "burst headroom is reservable")

	err := repo.ReservePool(ctx, "budget", 0.01)
	assert.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrPoolExhausted)
	assert.Equal(t, exception.KindResourceExhaustion, exception.KindOf(err))

	stored, findErr := repo.FindPoolByName(ctx, "budget")
	assert.NoError(t, findErr)
	assert.Equal(t, 110.0, stored.Used, "a rejected reservation must not change the counter")
}

func TestReservePool_UnknownPool(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	err := repo.ReservePool(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, repository.ErrPoolNotFound)
}

func TestReleasePool_ClampsAtZero(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()

	pool := model.NewResourcePool("memory", model.ResourceTypeMemory, 4096, 0)
	pool.Used = 100
	assert.NoError(t, repo.SavePool(ctx, pool))

	assert.NoError(t, repo.ReleasePool(ctx, "memory", 500))
	stored, err := repo.FindPoolByName(ctx, "memory")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, stored.Used)
}

// TestConcurrentReservationsNeverExceedBound hammers one pool from many
// goroutines and asserts the aggregate never exceeds capacity plus burst.
func TestConcurrentReservationsNeverExceedBound(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()

	pool := model.NewResourcePool("quota", model.ResourceTypeQuota, 100, 5)
	assert.NoError(t, repo.SavePool(ctx, pool))

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0.0

	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.ReservePool(ctx, "quota", 4); err == nil {
				mu.Lock()
				granted += 4
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, granted, 105.0)
	stored, err := repo.FindPoolByName(ctx, "quota")
	assert.NoError(t, err)
	assert.Equal(t, granted, stored.Used)
}

func TestMarkPoolErrorAndHealthy(t *testing.T) {
	repo := inmemory.NewInMemoryCoordinatorRepository()
	ctx := context.Background()

	pool := model.NewResourcePool("connections", model.ResourceTypeConnections, 50, 0)
	assert.NoError(t, repo.SavePool(ctx, pool))

	for i := 0; i < 5; i++ {
		assert.NoError(t, repo.MarkPoolError(ctx, "connections"))
	}
	stored, err := repo.FindPoolByName(ctx, "connections")
	assert.NoError(t, err)
	assert.Equal(t, model.PoolStatusUnavailable, stored.Status())

	assert.NoError(t, repo.MarkPoolHealthy(ctx, "connections"))
	stored, err = repo.FindPoolByName(ctx, "connections")
	assert.NoError(t, err)
	assert.Equal(t, 0, stored.ConsecutiveErrors)
	assert.Equal(t, model.PoolStatusHealthy, stored.Status())
}
