package inmemory

import (
	"context"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
)

// --- StateRepository implementation ---

func (r *InMemoryCoordinatorRepository) AppendStateEntry(_ context.Context, entry *model.CoordinatorStateEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateEntries = append(r.stateEntries, copyStateEntry(entry))
	return nil
}

func (r *InMemoryCoordinatorRepository) FindLatestStateEntry(_ context.Context) (*model.CoordinatorStateEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stateEntries) == 0 {
		return nil, repository.ErrStateEntryNotFound
	}
	return copyStateEntry(r.stateEntries[len(r.stateEntries)-1]), nil
}

func (r *InMemoryCoordinatorRepository) FindStateEntriesSince(_ context.Context, since time.Time) ([]*model.CoordinatorStateEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CoordinatorStateEntry
	for _, entry := range r.stateEntries {
		if entry.EnteredAt.After(since) {
			out = append(out, copyStateEntry(entry))
		}
	}
	return out, nil
}
