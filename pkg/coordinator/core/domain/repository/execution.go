package repository

import (
	"context"
	"errors"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// ErrExecutionRecordNotFound is the error returned when an ExecutionRecord is not found.
var ErrExecutionRecordNotFound = errors.New("execution record not found")

func init() {
	exception.RegisterErrorType("ErrExecutionRecordNotFound", ErrExecutionRecordNotFound)
}

// CategoryStats aggregates historical execution outcomes for one category over a
// window. The scheduler derives its success prediction from it and the monitor
// checks thresholds against it.
type CategoryStats struct {
	Category     string
	Total        int
	Succeeded    int
	Failed       int
	SuccessRate  float64
	MeanDuration time.Duration
	TotalCost    float64
}

type ExecutionRecordRepository interface {
	// SaveExecutionRecord persists a new ExecutionRecord.
	SaveExecutionRecord(ctx context.Context, record *model.ExecutionRecord) error

	// UpdateExecutionRecord updates an existing record using optimistic locking
	// on its Version field. A stale version yields an
	// exception.ErrOptimisticLockingFailure.
	UpdateExecutionRecord(ctx context.Context, record *model.ExecutionRecord) error

	// FindExecutionRecordByID finds an ExecutionRecord by its ID.
	FindExecutionRecordByID(ctx context.Context, id string) (*model.ExecutionRecord, error)

	// FindActiveExecutions returns all records in PENDING or RUNNING state.
	FindActiveExecutions(ctx context.Context) ([]*model.ExecutionRecord, error)

	// CountActiveExecutions counts records in PENDING or RUNNING state.
	CountActiveExecutions(ctx context.Context) (int, error)

	// CountActiveByCategory counts PENDING or RUNNING records for one category.
	CountActiveByCategory(ctx context.Context, category string) (int, error)

	// FindLastCompleted returns the most recently COMPLETED record for a
	// category, or ErrExecutionRecordNotFound when the category never succeeded.
	FindLastCompleted(ctx context.Context, category string) (*model.ExecutionRecord, error)

	// CategoryStatsSince aggregates outcomes for a category over records that
	// reached a terminal state after `since`.
	CategoryStatsSince(ctx context.Context, category string, since time.Time) (*CategoryStats, error)

	// CountFailuresSince counts FAILED and TIMEOUT records whose completion fell
	// after `since`, across all categories. The health gate's failure window.
	CountFailuresSince(ctx context.Context, since time.Time) (int, error)

	// FindOverdue returns non-terminal records whose TimeoutAt has passed.
	FindOverdue(ctx context.Context, now time.Time) ([]*model.ExecutionRecord, error)

	// FindTerminalBefore returns up to `limit` terminal records that finished
	// before `cutoff`, oldest first. Used by the archiver.
	FindTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.ExecutionRecord, error)

	// DeleteExecutionRecords removes records by ID after they have been archived.
	DeleteExecutionRecords(ctx context.Context, ids []string) error
}
