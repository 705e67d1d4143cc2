package inmemory

import (
	"context"
	"fmt"
	"sort"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// --- PoolRepository implementation ---

func (r *InMemoryCoordinatorRepository) SavePool(_ context.Context, pool *model.ResourcePool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[pool.Name] = copyPool(pool)
	return nil
}

func (r *InMemoryCoordinatorRepository) FindPoolByName(_ context.Context, name string) (*model.ResourcePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, exists := r.pools[name]
	if !exists {
		return nil, repository.ErrPoolNotFound
	}
	return copyPool(pool), nil
}

func (r *InMemoryCoordinatorRepository) FindAllPools(_ context.Context) ([]*model.ResourcePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ResourcePool, 0, len(r.pools))
	for _, pool := range r.pools {
		out = append(out, copyPool(pool))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ReservePool checks and consumes headroom under the writer lock, so the
// capacity + burst bound holds across concurrent reservations.
func (r *InMemoryCoordinatorRepository) ReservePool(_ context.Context, name string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, exists := r.pools[name]
	if !exists {
		return repository.ErrPoolNotFound
	}
	if !pool.CanReserve(amount) {
		return exception.NewResourceExhaustionError("repository",
			fmt.Sprintf("pool '%s' cannot accommodate reservation of %.2f", name, amount),
			exception.ErrPoolExhausted)
	}
	pool.Reserve(amount)
	pool.Version++
	return nil
}

func (r *InMemoryCoordinatorRepository) ReleasePool(_ context.Context, name string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, exists := r.pools[name]
	if !exists {
		return repository.ErrPoolNotFound
	}
	pool.Release(amount)
	pool.Version++
	return nil
}

func (r *InMemoryCoordinatorRepository) MarkPoolError(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, exists := r.pools[name]
	if !exists {
		return repository.ErrPoolNotFound
	}
	pool.ConsecutiveErrors++
	pool.Version++
	pool.LastUpdated = time.Now()
	return nil
}

func (r *InMemoryCoordinatorRepository) MarkPoolHealthy(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, exists := r.pools[name]
	if !exists {
		return repository.ErrPoolNotFound
	}
	pool.ConsecutiveErrors = 0
	pool.Available = true
	pool.Version++
	pool.LastUpdated = time.Now()
	return nil
}
