package repository

import (
	"context"
	"errors"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// ErrStateEntryNotFound is returned when no coordinator state entry exists yet.
var ErrStateEntryNotFound = errors.New("coordinator state entry not found")

func init() {
	exception.RegisterErrorType("ErrStateEntryNotFound", ErrStateEntryNotFound)
}

// StateRepository persists the coordinator's append-only transition log.
// Entries are written once and never updated or deleted.
type StateRepository interface {
	// AppendStateEntry persists one transition entry.
	AppendStateEntry(ctx context.Context, entry *model.CoordinatorStateEntry) error

	// FindLatestStateEntry returns the most recent entry, or
	// ErrStateEntryNotFound on a fresh installation.
	FindLatestStateEntry(ctx context.Context) (*model.CoordinatorStateEntry, error)

	// FindStateEntriesSince returns entries entered after `since`, oldest first.
	FindStateEntriesSince(ctx context.Context, since time.Time) ([]*model.CoordinatorStateEntry, error)
}
