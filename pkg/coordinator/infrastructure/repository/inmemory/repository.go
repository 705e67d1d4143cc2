// Package inmemory provides a mutex-guarded, process-local implementation of
// the coordinator store. It backs unit tests and single-process deployments
// where an external database is not warranted. The exactly-once claim guarantee
// holds because every mutation runs under one writer lock.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// InMemoryCoordinatorRepository implements repository.CoordinatorRepository
// with plain maps. All stored values are deep-copied on the way in and out so
// callers can never mutate shared state behind the lock's back.
type InMemoryCoordinatorRepository struct {
	mu sync.Mutex

	records         map[string]*model.ExecutionRecord
	queueItems      map[string]*model.QueueItem
	pools           map[string]*model.ResourcePool
	stateEntries    []*model.CoordinatorStateEntry
	alerts          map[string]*model.Alert
	recommendations []*model.Recommendation
	usageSamples    []*model.ResourceUsageSample
}

// NewInMemoryCoordinatorRepository creates an empty in-memory store.
func NewInMemoryCoordinatorRepository() *InMemoryCoordinatorRepository {
	return &InMemoryCoordinatorRepository{
		records:    make(map[string]*model.ExecutionRecord),
		queueItems: make(map[string]*model.QueueItem),
		pools:      make(map[string]*model.ResourcePool),
		alerts:     make(map[string]*model.Alert),
	}
}

// Close is a no-op for the in-memory store.
func (r *InMemoryCoordinatorRepository) Close() error {
	return nil
}

func copyRecord(rec *model.ExecutionRecord) *model.ExecutionRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	cp.Allocation = rec.Allocation
	cp.InputContext = rec.InputContext.Copy()
	cp.OutputContext = rec.OutputContext.Copy()
	return &cp
}

func copyQueueItem(item *model.QueueItem) *model.QueueItem {
	if item == nil {
		return nil
	}
	cp := *item
	cp.Payload = item.Payload.Copy()
	return &cp
}

func copyPool(p *model.ResourcePool) *model.ResourcePool {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func copyStateEntry(e *model.CoordinatorStateEntry) *model.CoordinatorStateEntry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Details = e.Details.Copy()
	return &cp
}

// --- ExecutionRecordRepository implementation ---

func (r *InMemoryCoordinatorRepository) SaveExecutionRecord(_ context.Context, record *model.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.ID]; exists {
		return exception.NewValidationError("repository",
			fmt.Sprintf("ExecutionRecord (ID: %s) already exists", record.ID), nil)
	}
	r.records[record.ID] = copyRecord(record)
	return nil
}

func (r *InMemoryCoordinatorRepository) UpdateExecutionRecord(_ context.Context, record *model.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.records[record.ID]
	if !exists {
		return repository.ErrExecutionRecordNotFound
	}
	if stored.Version != record.Version {
		return exception.NewOptimisticLockingFailureException("repository",
			fmt.Sprintf("ExecutionRecord (ID: %s) version mismatch: stored %d, given %d",
				record.ID, stored.Version, record.Version), nil)
	}
	record.Version++
	r.records[record.ID] = copyRecord(record)
	return nil
}

func (r *InMemoryCoordinatorRepository) FindExecutionRecordByID(_ context.Context, id string) (*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, exists := r.records[id]
	if !exists {
		return nil, repository.ErrExecutionRecordNotFound
	}
	return copyRecord(rec), nil
}

func (r *InMemoryCoordinatorRepository) FindActiveExecutions(_ context.Context) ([]*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ExecutionRecord
	for _, rec := range r.records {
		if isActiveStatus(rec.Status) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *InMemoryCoordinatorRepository) CountActiveExecutions(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if isActiveStatus(rec.Status) {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryCoordinatorRepository) CountActiveByCategory(_ context.Context, category string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if rec.Category == category && isActiveStatus(rec.Status) {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryCoordinatorRepository) FindLastCompleted(_ context.Context, category string) (*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.ExecutionRecord
	for _, rec := range r.records {
		if rec.Category != category || rec.Status != model.ExecutionStatusCompleted || rec.CompletedAt == nil {
			continue
		}
		if latest == nil || rec.CompletedAt.After(*latest.CompletedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, repository.ErrExecutionRecordNotFound
	}
	return copyRecord(latest), nil
}

func (r *InMemoryCoordinatorRepository) CategoryStatsSince(_ context.Context, category string, since time.Time) (*repository.CategoryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repository.CategoryStats{Category: category}
	var totalDuration time.Duration
	for _, rec := range r.records {
		if rec.Category != category || !isTerminalStatus(rec.Status) {
			continue
		}
		if rec.CompletedAt == nil || !rec.CompletedAt.After(since) {
			continue
		}
		stats.Total++
		stats.TotalCost += rec.CostActual
		totalDuration += rec.Duration()
		if rec.Status == model.ExecutionStatusCompleted {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
		stats.MeanDuration = totalDuration / time.Duration(stats.Total)
	}
	return stats, nil
}

func (r *InMemoryCoordinatorRepository) CountFailuresSince(_ context.Context, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if rec.Status != model.ExecutionStatusFailed && rec.Status != model.ExecutionStatusTimeout {
			continue
		}
		if rec.CompletedAt != nil && rec.CompletedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryCoordinatorRepository) FindOverdue(_ context.Context, now time.Time) ([]*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ExecutionRecord
	for _, rec := range r.records {
		if isActiveStatus(rec.Status) && rec.TimeoutAt.Before(now) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeoutAt.Before(out[j].TimeoutAt) })
	return out, nil
}

func (r *InMemoryCoordinatorRepository) FindTerminalBefore(_ context.Context, cutoff time.Time, limit int) ([]*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ExecutionRecord
	for _, rec := range r.records {
		if isTerminalStatus(rec.Status) && rec.CompletedAt != nil && rec.CompletedAt.Before(cutoff) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryCoordinatorRepository) DeleteExecutionRecords(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.records, id)
	}
	return nil
}

func isActiveStatus(s model.ExecutionStatus) bool {
	return s == model.ExecutionStatusPending || s == model.ExecutionStatusRunning
}

func isTerminalStatus(s model.ExecutionStatus) bool {
	switch s {
	case model.ExecutionStatusCompleted, model.ExecutionStatusFailed,
		model.ExecutionStatusTimeout, model.ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}
