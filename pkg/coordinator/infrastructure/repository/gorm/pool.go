package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- PoolRepository implementation ---

func (r *GormCoordinatorRepository) SavePool(ctx context.Context, pool *model.ResourcePool) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(fromDomainPool(pool)).Error
	if err != nil {
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to save ResourcePool (name: %s)", pool.Name), exception.KindSystemFault, err, true)
	}
	return nil
}

func (r *GormCoordinatorRepository) FindPoolByName(ctx context.Context, name string) (*model.ResourcePool, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity ResourcePoolEntity
	if err := db.Where("name = ?", name).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPoolNotFound
		}
		return nil, err
	}
	return toDomainPool(&entity), nil
}

func (r *GormCoordinatorRepository) FindAllPools(ctx context.Context) ([]*model.ResourcePool, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []ResourcePoolEntity
	if err := db.Order("name ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	pools := make([]*model.ResourcePool, len(entities))
	for i := range entities {
		pools[i] = toDomainPool(&entities[i])
	}
	return pools, nil
}

// ReservePool consumes headroom in a single guarded UPDATE. The WHERE clause
// re-checks capacity + burst against the current row, so two concurrent
// reservations can never jointly overshoot the bound: the second one finds the
// guard false and fails with ErrPoolExhausted.
func (r *GormCoordinatorRepository) ReservePool(ctx context.Context, name string, amount float64) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&ResourcePoolEntity{}).
		Where("name = ? AND used + ? <= capacity + burst_allowance", name, amount).
		Updates(map[string]interface{}{
			"used":         gorm.Expr("used + ?", amount),
			"version":      gorm.Expr("version + 1"),
			"last_updated": time.Now(),
		})
	if res.Error != nil {
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to reserve %.2f on pool '%s'", amount, name), exception.KindSystemFault, res.Error, true)
	}
	if res.RowsAffected == 0 {
		// Either the pool does not exist or the reservation would breach the bound.
		if _, findErr := r.FindPoolByName(ctx, name); findErr != nil {
			return findErr
		}
		return exception.NewResourceExhaustionError("repository",
			fmt.Sprintf("pool '%s' cannot accommodate reservation of %.2f", name, amount),
			exception.ErrPoolExhausted)
	}
	return nil
}

func (r *GormCoordinatorRepository) ReleasePool(ctx context.Context, name string, amount float64) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&ResourcePoolEntity{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{
			"used":         gorm.Expr("CASE WHEN used - ? < 0 THEN 0 ELSE used - ? END", amount, amount),
			"version":      gorm.Expr("version + 1"),
			"last_updated": time.Now(),
		})
	if res.Error != nil {
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to release %.2f on pool '%s'", amount, name), exception.KindSystemFault, res.Error, true)
	}
	if res.RowsAffected == 0 {
		return repository.ErrPoolNotFound
	}
	return nil
}

func (r *GormCoordinatorRepository) MarkPoolError(ctx context.Context, name string) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&ResourcePoolEntity{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{
			"consecutive_errors": gorm.Expr("consecutive_errors + 1"),
			"version":            gorm.Expr("version + 1"),
			"last_updated":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrPoolNotFound
	}
	return nil
}

func (r *GormCoordinatorRepository) MarkPoolHealthy(ctx context.Context, name string) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&ResourcePoolEntity{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{
			"consecutive_errors": 0,
			"available":          true,
			"version":            gorm.Expr("version + 1"),
			"last_updated":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrPoolNotFound
	}
	return nil
}
