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
)

// --- StateRepository implementation ---

func (r *GormCoordinatorRepository) AppendStateEntry(ctx context.Context, entry *model.CoordinatorStateEntry) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(fromDomainStateEntry(entry)).Error; err != nil {
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to append state entry (ID: %s, state: %s)", entry.ID, entry.State),
			exception.KindSystemFault, err, true)
	}
	return nil
}

func (r *GormCoordinatorRepository) FindLatestStateEntry(ctx context.Context) (*model.CoordinatorStateEntry, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity StateEntryEntity
	if err := db.Order("entered_at DESC, create_time DESC").First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStateEntryNotFound
		}
		return nil, err
	}
	return toDomainStateEntry(&entity), nil
}

func (r *GormCoordinatorRepository) FindStateEntriesSince(ctx context.Context, since time.Time) ([]*model.CoordinatorStateEntry, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []StateEntryEntity
	if err := db.Where("entered_at > ?", since).Order("entered_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	entries := make([]*model.CoordinatorStateEntry, len(entities))
	for i := range entities {
		entries[i] = toDomainStateEntry(&entities[i])
	}
	return entries, nil
}
