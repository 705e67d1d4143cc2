package execution

import (
	"context"
	"fmt"

	dispatch "github.com/pressflow/pacer/pkg/coordinator/core/dispatch"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	monitor "github.com/pressflow/pacer/pkg/coordinator/core/monitor"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// CallbackService is the surface the external workflow executor reports back
// through. The coordinator never calls into the executor synchronously; the
// executor picks up pending records and later invokes these callbacks with
// status, actual cost, and output or error payload.
type CallbackService struct {
	execRepo   repository.ExecutionRecordRepository
	poolRepo   repository.PoolRepository
	categories map[string]*model.WorkCategory
	monitor    *monitor.Monitor
	recorder   metrics.MetricRecorder
}

// NewCallbackService creates a CallbackService.
func NewCallbackService(
	execRepo repository.ExecutionRecordRepository,
	poolRepo repository.PoolRepository,
	categories []*model.WorkCategory,
	mon *monitor.Monitor,
	recorder metrics.MetricRecorder,
) *CallbackService {
	byID := make(map[string]*model.WorkCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &CallbackService{
		execRepo:   execRepo,
		poolRepo:   poolRepo,
		categories: byID,
		monitor:    mon,
		recorder:   recorder,
	}
}

// MarkRunning transitions a pending record to RUNNING under the executor's
// worker id.
func (s *CallbackService) MarkRunning(ctx context.Context, recordID string, workerID string) error {
	record, err := s.execRepo.FindExecutionRecordByID(ctx, recordID)
	if err != nil {
		return err
	}
	if err := record.MarkAsRunning(workerID); err != nil {
		return err
	}
	if err := s.execRepo.UpdateExecutionRecord(ctx, record); err != nil {
		return fmt.Errorf("callback: failed to persist RUNNING for record %s: %w", recordID, err)
	}
	logger.Debugf("Callback: record %s (category: %s) started by worker '%s'.", record.ID, record.Category, workerID)
	return nil
}

// CompleteRecord transitions a running record to COMPLETED with its actual
// cost and output payload, then returns its transient allocation to the pools.
func (s *CallbackService) CompleteRecord(ctx context.Context, recordID string, costActual float64, output model.ExecutionContext) error {
	record, err := s.execRepo.FindExecutionRecordByID(ctx, recordID)
	if err != nil {
		return err
	}
	if err := record.MarkAsCompleted(costActual, output); err != nil {
		return err
	}
	return s.finish(ctx, record)
}

// FailRecord transitions a record to FAILED with the executor's error detail,
// then returns its transient allocation to the pools. Terminal failures feed
// the rolling windows; there is no silent failure path.
func (s *CallbackService) FailRecord(ctx context.Context, recordID string, cause error) error {
	record, err := s.execRepo.FindExecutionRecordByID(ctx, recordID)
	if err != nil {
		return err
	}
	if err := record.MarkAsFailed(cause); err != nil {
		return err
	}
	logger.Warnf("Callback: record %s (category: %s) failed: %s", record.ID, record.Category, record.ErrorDetail)
	return s.finish(ctx, record)
}

// CancelRecord transitions a record to CANCELLED, used when an operator
// withdraws dispatched work before the executor starts it.
func (s *CallbackService) CancelRecord(ctx context.Context, recordID string, reason string) error {
	record, err := s.execRepo.FindExecutionRecordByID(ctx, recordID)
	if err != nil {
		return err
	}
	if err := record.MarkAsCancelled(reason); err != nil {
		return err
	}
	return s.finish(ctx, record)
}

// finish persists a terminal record, releases its allocation and feeds the
// monitor.
func (s *CallbackService) finish(ctx context.Context, record *model.ExecutionRecord) error {
	if err := s.execRepo.UpdateExecutionRecord(ctx, record); err != nil {
		return fmt.Errorf("callback: failed to persist terminal status %s for record %s: %w", record.Status, record.ID, err)
	}
	if cat, ok := s.categories[record.Category]; ok {
		dispatch.ReleaseAllocation(ctx, s.poolRepo, cat, record)
	}
	s.monitor.ObserveOutcome(record)
	s.recorder.RecordExecutionOutcome(ctx, record)
	return nil
}
