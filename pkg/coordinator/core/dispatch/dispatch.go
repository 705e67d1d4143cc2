package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	exception "github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Dispatcher commits the plan: it reserves resource headroom and creates one
// durable pending ExecutionRecord per planned task. The coordinator's
// responsibility ends at "durable pending record plus committed reservation";
// the external workflow executor picks records up from there and calls back
// with outcomes.
type Dispatcher struct {
	execRepo   repository.ExecutionRecordRepository
	poolRepo   repository.PoolRepository
	categories map[string]*model.WorkCategory
	cfg        config.MonitoringConfig
	recorder   metrics.MetricRecorder
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	execRepo repository.ExecutionRecordRepository,
	poolRepo repository.PoolRepository,
	categories []*model.WorkCategory,
	cfg config.MonitoringConfig,
	recorder metrics.MetricRecorder,
) *Dispatcher {
	byID := make(map[string]*model.WorkCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &Dispatcher{
		execRepo:   execRepo,
		poolRepo:   poolRepo,
		categories: byID,
		cfg:        cfg,
		recorder:   recorder,
	}
}

// Dispatch reserves resources and creates pending records for every task in
// the plan. Per-task faults (exhausted pool, reservation race) skip that task
// and continue; the accumulated task errors are returned alongside the records
// that did dispatch. When the record write fails after its reservation
// succeeded, the reservation is released again so the capacity does not leak.
func (d *Dispatcher) Dispatch(ctx context.Context, plan *model.ExecutionPlan, workerID string, now time.Time) ([]*model.ExecutionRecord, error) {
	if plan.Empty() {
		return nil, nil
	}

	var dispatchErrs *multierror.Error
	records := make([]*model.ExecutionRecord, 0, len(plan.Tasks))

	for _, task := range plan.Tasks {
		record, err := d.dispatchTask(ctx, task, workerID, now)
		if err != nil {
			dispatchErrs = multierror.Append(dispatchErrs, err)
			continue
		}
		records = append(records, record)
		d.recorder.RecordDispatch(ctx, record)
	}

	logger.Infof("Dispatch: created %d of %d pending records (worker: %s).", len(records), len(plan.Tasks), workerID)
	return records, dispatchErrs.ErrorOrNil()
}

// dispatchTask reserves every pool the task's category consumes, then writes
// the pending record.
func (d *Dispatcher) dispatchTask(ctx context.Context, task *model.PlannedTask, workerID string, now time.Time) (*model.ExecutionRecord, error) {
	cat, ok := d.categories[task.CategoryID]
	if !ok {
		return nil, exception.NewValidationError("dispatch",
			"planned task references unknown category '"+task.CategoryID+"'", nil)
	}

	reserved, err := d.reserve(ctx, cat, task.Footprint)
	if err != nil {
		if errors.Is(err, exception.ErrPoolExhausted) {
			logger.Warnf("Dispatch: skipping category '%s', reservation rejected: %v", task.CategoryID, err)
		}
		return nil, err
	}

	scheduledAt := now.Add(task.StartOffset)
	timeoutAt := scheduledAt.Add(time.Duration(d.cfg.RecordTimeoutMinutes) * time.Minute)
	record := model.NewExecutionRecord(
		task.CategoryID, task.BatchSize, task.Priority, task.EstimatedCost,
		task.Footprint, scheduledAt, timeoutAt, 0, workerID,
	)
	record.InputContext.Put("execution_order", task.ExecutionOrder)
	record.InputContext.Put("start_offset_seconds", int(task.StartOffset.Seconds()))
	if len(task.DependsOn) > 0 {
		record.InputContext.Put("depends_on", task.DependsOn)
	}

	if err := d.execRepo.SaveExecutionRecord(ctx, record); err != nil {
		// Compensating release: without it the reserved capacity would leak
		// until the next accounting cycle.
		d.release(ctx, reserved)
		logger.Errorf("Dispatch: record write failed for category '%s' (batch=%d, cost=%.2f, pools=%v) after reservation, released reservation: %v",
			task.CategoryID, task.BatchSize, task.EstimatedCost, cat.Pools, err)
		return nil, exception.NewCoordinatorError("dispatch",
			"failed to persist pending execution record for category '"+task.CategoryID+"'",
			exception.KindSystemFault, err, false)
	}
	return record, nil
}

type reservation struct {
	pool   string
	amount float64
}

// reserve claims headroom on every pool the category consumes. On a partial
// failure the already-claimed pools are released again before returning.
func (d *Dispatcher) reserve(ctx context.Context, cat *model.WorkCategory, footprint model.ResourceFootprint) ([]reservation, error) {
	var reserved []reservation
	for _, poolName := range cat.Pools {
		pool, err := d.poolRepo.FindPoolByName(ctx, poolName)
		if err != nil {
			d.release(ctx, reserved)
			return nil, err
		}
		amount := footprint.AmountFor(pool.Type)
		if amount <= 0 {
			continue
		}
		if err := d.poolRepo.ReservePool(ctx, poolName, amount); err != nil {
			d.release(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, reservation{pool: poolName, amount: amount})
	}
	return reserved, nil
}

// release undoes reservations, logging failures instead of propagating them:
// at this point the caller is already on an error path.
func (d *Dispatcher) release(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		if err := d.poolRepo.ReleasePool(ctx, r.pool, r.amount); err != nil {
			logger.Errorf("Dispatch: failed to release %.2f on pool '%s', manual reconciliation required: %v", r.amount, r.pool, err)
		}
	}
}

// ReleaseAllocation returns a finished record's committed allocation to the
// pools its category consumes. Called when a record reaches a terminal state.
func ReleaseAllocation(ctx context.Context, poolRepo repository.PoolRepository, cat *model.WorkCategory, record *model.ExecutionRecord) {
	for _, poolName := range cat.Pools {
		pool, err := poolRepo.FindPoolByName(ctx, poolName)
		if err != nil {
			logger.Errorf("Dispatch: cannot release allocation of record %s, pool '%s' lookup failed: %v", record.ID, poolName, err)
			continue
		}
		// Budget and quota are consumed for good; only transient capacity
		// (memory, connection slots) returns on completion.
		if pool.Type == model.ResourceTypeBudget || pool.Type == model.ResourceTypeQuota {
			continue
		}
		amount := record.Allocation.AmountFor(pool.Type)
		if amount <= 0 {
			continue
		}
		if err := poolRepo.ReleasePool(ctx, poolName, amount); err != nil {
			logger.Errorf("Dispatch: failed to release %.2f on pool '%s' for record %s: %v", amount, poolName, record.ID, err)
		}
	}
}
