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

// --- QueueRepository implementation ---

func (r *GormCoordinatorRepository) EnqueueItem(ctx context.Context, item *model.QueueItem) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(fromDomainQueueItem(item)).Error; err != nil {
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to enqueue QueueItem (ID: %s)", item.ID), exception.KindSystemFault, err, true)
	}
	return nil
}

// ClaimNextItem atomically transfers ownership of the highest-priority eligible
// item to `owner`. Eligible means QUEUED with retries remaining and past its
// eligibility delay, or PROCESSING under an expired lock. On engines that
// support it the candidate row is selected FOR UPDATE SKIP LOCKED so that
// concurrent claimers never contend on the same row; elsewhere the version CAS
// on the claim update provides the exactly-once guarantee and losers surface a
// concurrency conflict the caller can retry.
func (r *GormCoordinatorRepository) ClaimNextItem(ctx context.Context, owner string, now time.Time, lockDuration time.Duration) (*model.QueueItem, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	db := conn.DB().WithContext(ctx)
	lockExpiry := now.Add(-lockDuration)

	var claimed *model.QueueItem
	txErr := db.Transaction(func(tx *gorm.DB) error {
		query := tx.
			Where("(status = ? AND retry_count < max_retries AND (next_eligible_at IS NULL OR next_eligible_at <= ?))"+
				" OR (status = ? AND locked_at IS NOT NULL AND locked_at <= ?)",
				model.QueueStatusQueued, now, model.QueueStatusProcessing, lockExpiry).
			Order("priority_tier ASC, create_time ASC")
		if conn.SupportsSkipLocked() {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var entity QueueItemEntity
		if err := query.First(&entity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNoEligibleItems
			}
			return err
		}

		item := toDomainQueueItem(&entity)
		originalVersion := item.Version
		item.Claim(owner, now)
		item.Version++

		res := tx.Model(&QueueItemEntity{}).
			Where("id = ? AND version = ?", item.ID, originalVersion).
			Select("*").Omit("id", "create_time").
			Updates(fromDomainQueueItem(item))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return exception.NewConcurrencyConflictError("repository",
				fmt.Sprintf("QueueItem (ID: %s) was claimed concurrently", item.ID), nil)
		}
		claimed = item
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return claimed, nil
}

func (r *GormCoordinatorRepository) UpdateQueueItem(ctx context.Context, item *model.QueueItem) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	originalVersion := item.Version
	item.Version++

	res := db.Model(&QueueItemEntity{}).
		Where("id = ? AND version = ?", item.ID, originalVersion).
		Select("*").Omit("id", "create_time").
		Updates(fromDomainQueueItem(item))
	if res.Error != nil {
		item.Version = originalVersion
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to update QueueItem (ID: %s)", item.ID), exception.KindSystemFault, res.Error, true)
	}
	if res.RowsAffected == 0 {
		item.Version = originalVersion
		return exception.NewOptimisticLockingFailureException("repository",
			fmt.Sprintf("QueueItem (ID: %s) with version %d not found for update", item.ID, originalVersion), nil)
	}
	return nil
}

func (r *GormCoordinatorRepository) FindQueueItemByID(ctx context.Context, id string) (*model.QueueItem, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity QueueItemEntity
	if err := db.Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrQueueItemNotFound
		}
		return nil, err
	}
	return toDomainQueueItem(&entity), nil
}

func (r *GormCoordinatorRepository) CountBacklog(ctx context.Context, category string) (int, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = db.Model(&QueueItemEntity{}).
		Where("category = ? AND status = ?", category, model.QueueStatusQueued).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormCoordinatorRepository) TotalBacklog(ctx context.Context) (int, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&QueueItemEntity{}).Where("status = ?", model.QueueStatusQueued).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormCoordinatorRepository) CountDeadLettered(ctx context.Context) (int, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&QueueItemEntity{}).Where("status = ?", model.QueueStatusFailed).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormCoordinatorRepository) MeanBacklogAge(ctx context.Context, now time.Time) (time.Duration, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var createTimes []time.Time
	err = db.Model(&QueueItemEntity{}).
		Where("status = ?", model.QueueStatusQueued).
		Pluck("create_time", &createTimes).Error
	if err != nil {
		return 0, err
	}
	if len(createTimes) == 0 {
		return 0, nil
	}
	var total time.Duration
	for _, t := range createTimes {
		total += now.Sub(t)
	}
	return total / time.Duration(len(createTimes)), nil
}
