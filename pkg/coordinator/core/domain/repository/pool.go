package repository

import (
	"context"
	"errors"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// ErrPoolNotFound is the error returned when a resource pool is not found.
var ErrPoolNotFound = errors.New("resource pool not found")

func init() {
	exception.RegisterErrorType("ErrPoolNotFound", ErrPoolNotFound)
}

type PoolRepository interface {
	// SavePool persists a new resource pool.
	SavePool(ctx context.Context, pool *model.ResourcePool) error

	// FindPoolByName finds a pool by its name.
	FindPoolByName(ctx context.Context, name string) (*model.ResourcePool, error)

	// FindAllPools returns every tracked pool.
	FindAllPools(ctx context.Context) ([]*model.ResourcePool, error)

	// ReservePool atomically consumes `amount` of the named pool's headroom.
	// The reservation applies only if used+amount stays within capacity plus
	// burst allowance; otherwise exception.ErrPoolExhausted is returned and the
	// pool is left untouched. Concurrent reservations never oversubscribe.
	ReservePool(ctx context.Context, name string, amount float64) error

	// ReleasePool atomically returns `amount` of previously reserved headroom,
	// clamped at zero.
	ReleasePool(ctx context.Context, name string, amount float64) error

	// MarkPoolError increments the pool's consecutive error streak.
	MarkPoolError(ctx context.Context, name string) error

	// MarkPoolHealthy resets the pool's consecutive error streak after a
	// successful probe.
	MarkPoolHealthy(ctx context.Context, name string) error
}
