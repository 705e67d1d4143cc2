package repository

import (
	"context"
	"errors"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// ErrQueueItemNotFound is the error returned when a queue item is not found.
var ErrQueueItemNotFound = errors.New("queue item not found")

// ErrNoEligibleItems is returned by ClaimNextItem when no item is claimable.
// It is an expected idle-queue condition, not a failure.
var ErrNoEligibleItems = errors.New("no eligible queue items")

func init() {
	exception.RegisterErrorType("ErrQueueItemNotFound", ErrQueueItemNotFound)
	exception.RegisterErrorType("ErrNoEligibleItems", ErrNoEligibleItems)
}

type QueueRepository interface {
	// EnqueueItem persists a new queue item in QUEUED state.
	EnqueueItem(ctx context.Context, item *model.QueueItem) error

	// ClaimNextItem atomically claims the highest-priority eligible item for
	// `owner` and returns it in PROCESSING state. Eligibility covers QUEUED
	// items past their NextEligibleAt and PROCESSING items whose lock aged out
	// beyond `lockDuration`. Under concurrent callers each item is handed to
	// exactly one of them. Returns ErrNoEligibleItems when nothing qualifies.
	ClaimNextItem(ctx context.Context, owner string, now time.Time, lockDuration time.Duration) (*model.QueueItem, error)

	// UpdateQueueItem updates an existing item using optimistic locking on its
	// Version field.
	UpdateQueueItem(ctx context.Context, item *model.QueueItem) error

	// FindQueueItemByID finds a queue item by its ID.
	FindQueueItemByID(ctx context.Context, id string) (*model.QueueItem, error)

	// CountBacklog counts QUEUED items for one category.
	CountBacklog(ctx context.Context, category string) (int, error)

	// TotalBacklog counts QUEUED items across all categories.
	TotalBacklog(ctx context.Context) (int, error)

	// CountDeadLettered counts items that exhausted their retries.
	CountDeadLettered(ctx context.Context) (int, error)

	// MeanBacklogAge returns the mean time QUEUED items have been waiting at
	// `now`, or zero when the backlog is empty.
	MeanBacklogAge(ctx context.Context, now time.Time) (time.Duration, error)
}
