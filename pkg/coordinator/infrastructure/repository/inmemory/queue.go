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

// --- QueueRepository implementation ---

func (r *InMemoryCoordinatorRepository) EnqueueItem(_ context.Context, item *model.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.queueItems[item.ID]; exists {
		return exception.NewValidationError("repository",
			fmt.Sprintf("QueueItem (ID: %s) already exists", item.ID), nil)
	}
	r.queueItems[item.ID] = copyQueueItem(item)
	return nil
}

// ClaimNextItem selects the highest-priority eligible item and claims it for
// `owner` under the store's single writer lock, so concurrent claimers can
// never receive the same item.
func (r *InMemoryCoordinatorRepository) ClaimNextItem(_ context.Context, owner string, now time.Time, lockDuration time.Duration) (*model.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var eligible []*model.QueueItem
	for _, item := range r.queueItems {
		if item.Eligible(now, lockDuration) {
			eligible = append(eligible, item)
		}
	}
	if len(eligible) == 0 {
		return nil, repository.ErrNoEligibleItems
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].PriorityTier != eligible[j].PriorityTier {
			return eligible[i].PriorityTier < eligible[j].PriorityTier
		}
		return eligible[i].CreateTime.Before(eligible[j].CreateTime)
	})

	item := eligible[0]
	item.Claim(owner, now)
	item.Version++
	return copyQueueItem(item), nil
}

func (r *InMemoryCoordinatorRepository) UpdateQueueItem(_ context.Context, item *model.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.queueItems[item.ID]
	if !exists {
		return repository.ErrQueueItemNotFound
	}
	if stored.Version != item.Version {
		return exception.NewOptimisticLockingFailureException("repository",
			fmt.Sprintf("QueueItem (ID: %s) version mismatch: stored %d, given %d",
				item.ID, stored.Version, item.Version), nil)
	}
	item.Version++
	r.queueItems[item.ID] = copyQueueItem(item)
	return nil
}

func (r *InMemoryCoordinatorRepository) FindQueueItemByID(_ context.Context, id string) (*model.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, exists := r.queueItems[id]
	if !exists {
		return nil, repository.ErrQueueItemNotFound
	}
	return copyQueueItem(item), nil
}

func (r *InMemoryCoordinatorRepository) CountBacklog(_ context.Context, category string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, item := range r.queueItems {
		if item.Category == category && item.Status == model.QueueStatusQueued {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryCoordinatorRepository) TotalBacklog(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, item := range r.queueItems {
		if item.Status == model.QueueStatusQueued {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryCoordinatorRepository) CountDeadLettered(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, item := range r.queueItems {
		if item.Status == model.QueueStatusFailed {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryCoordinatorRepository) MeanBacklogAge(_ context.Context, now time.Time) (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	n := 0
	for _, item := range r.queueItems {
		if item.Status == model.QueueStatusQueued {
			total += now.Sub(item.CreateTime)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return total / time.Duration(n), nil
}
