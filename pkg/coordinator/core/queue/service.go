package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	exception "github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Service implements the work-queue claim protocol over the queue repository.
// An unbounded number of worker processes may call Claim concurrently; the
// repository's atomic claim-and-lock is the sole mechanism preventing
// duplicate processing.
type Service struct {
	repo     repository.QueueRepository
	cfg      config.QueueConfig
	recorder metrics.MetricRecorder
}

// NewService creates a queue Service.
func NewService(repo repository.QueueRepository, cfg config.QueueConfig, recorder metrics.MetricRecorder) *Service {
	return &Service{repo: repo, cfg: cfg, recorder: recorder}
}

// Enqueue creates a new QUEUED item for the category with the queue's retry budget.
func (s *Service) Enqueue(ctx context.Context, category string, priorityTier int, payload model.ExecutionContext) (*model.QueueItem, error) {
	item := model.NewQueueItem(category, priorityTier, payload, s.cfg.MaxRetries)
	if err := s.repo.EnqueueItem(ctx, item); err != nil {
		return nil, fmt.Errorf("queue: failed to enqueue item for category '%s': %w", category, err)
	}
	return item, nil
}

// Claim atomically claims up to n eligible items for `owner`, ordered by
// priority tier then age. Items locked by another in-flight claim are skipped
// rather than waited for: two concurrent claims always return disjoint sets.
// Returns fewer than n items (possibly none) when the backlog runs dry.
func (s *Service) Claim(ctx context.Context, owner string, n int) ([]*model.QueueItem, error) {
	now := time.Now()
	lockDuration := s.LockDuration()

	items := make([]*model.QueueItem, 0, n)
	for len(items) < n {
		item, err := s.repo.ClaimNextItem(ctx, owner, now, lockDuration)
		if err != nil {
			if errors.Is(err, repository.ErrNoEligibleItems) {
				break
			}
			if exception.IsConcurrencyConflict(err) {
				// Another claimant won the race for this item; keep going.
				continue
			}
			return items, fmt.Errorf("queue: claim failed for owner '%s': %w", owner, err)
		}
		items = append(items, item)
		s.recorder.RecordQueueClaim(ctx, item)
	}
	logger.Debugf("Queue: owner '%s' claimed %d item(s).", owner, len(items))
	return items, nil
}

// Complete marks a claimed item COMPLETED with a reference to its result.
func (s *Service) Complete(ctx context.Context, id string, resultRef string) error {
	item, err := s.repo.FindQueueItemByID(ctx, id)
	if err != nil {
		return err
	}
	item.Complete(resultRef)
	if err := s.repo.UpdateQueueItem(ctx, item); err != nil {
		return fmt.Errorf("queue: failed to complete item %s: %w", id, err)
	}
	s.recorder.RecordQueueOutcome(ctx, item)
	return nil
}

// Fail records a failed attempt. Below the retry budget the item returns to
// QUEUED with an escalating eligibility delay; at the budget it is
// dead-lettered permanently with its full error context preserved for manual
// review.
func (s *Service) Fail(ctx context.Context, id string, cause error) error {
	item, err := s.repo.FindQueueItemByID(ctx, id)
	if err != nil {
		return err
	}

	delay := s.Backoff(item.RetryCount + 1)
	if err := item.Fail(exception.ExtractErrorMessage(cause), time.Now().Add(delay)); err != nil {
		return fmt.Errorf("queue: refusing failure report for item %s: %w", id, err)
	}
	if err := s.repo.UpdateQueueItem(ctx, item); err != nil {
		return fmt.Errorf("queue: failed to record failure of item %s: %w", id, err)
	}

	if item.DeadLettered() {
		logger.Errorf("Queue: item %s (category: %s) dead-lettered after %d attempts: %s",
			item.ID, item.Category, item.RetryCount, item.ErrorDetail)
	} else {
		logger.Warnf("Queue: item %s (category: %s) failed attempt %d/%d, eligible again in %s.",
			item.ID, item.Category, item.RetryCount, item.MaxRetries, delay)
	}
	s.recorder.RecordQueueOutcome(ctx, item)
	return nil
}

// Backoff returns the delay before the given attempt (1-based) becomes
// eligible again. Attempts beyond the configured schedule reuse its last entry.
func (s *Service) Backoff(attempt int) time.Duration {
	schedule := s.cfg.BackoffScheduleSeconds
	if len(schedule) == 0 {
		return time.Minute
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return time.Duration(schedule[idx]) * time.Second
}

// LockDuration returns how long a claim is presumed owned before the item is
// reclaimable.
func (s *Service) LockDuration() time.Duration {
	return time.Duration(s.cfg.LockDurationMinutes) * time.Minute
}
