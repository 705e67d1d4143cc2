package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	dispatch "github.com/pressflow/pacer/pkg/coordinator/core/dispatch"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	metrics "github.com/pressflow/pacer/pkg/coordinator/core/metrics"
	ports "github.com/pressflow/pacer/pkg/coordinator/core/ports"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Rolling windows evaluated by the threshold rules.
const (
	windowShort  = time.Minute
	windowMedium = 5 * time.Minute
	windowLong   = time.Hour
)

// Monitor aggregates rolling per-category metrics, raises threshold alerts,
// proposes (never applies) mitigations, and sweeps timed-out records.
type Monitor struct {
	repo       repository.CoordinatorRepository
	cfg        config.MonitoringConfig
	categories map[string]*model.WorkCategory
	window     outcomeWindow
	notifier   ports.AlertNotifier
	recorder   metrics.MetricRecorder
}

// NewMonitor creates a Monitor. `notifier` may be nil when no operator channel
// is configured.
func NewMonitor(
	repo repository.CoordinatorRepository,
	cfg config.MonitoringConfig,
	categories []*model.WorkCategory,
	notifier ports.AlertNotifier,
	recorder metrics.MetricRecorder,
) *Monitor {
	byID := make(map[string]*model.WorkCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &Monitor{
		repo:       repo,
		cfg:        cfg,
		categories: byID,
		notifier:   notifier,
		recorder:   recorder,
	}
}

// ObserveOutcome feeds one terminal execution record into the rolling windows.
// Safe for concurrent use; the executor callback path and the tick both call it.
func (m *Monitor) ObserveOutcome(record *model.ExecutionRecord) {
	at := time.Now()
	if record.CompletedAt != nil {
		at = *record.CompletedAt
	}
	m.window.add(outcome{
		at:       at,
		category: record.Category,
		success:  record.Status == model.ExecutionStatusCompleted,
		duration: record.Duration(),
		cost:     record.CostActual,
	})
}

// Stats returns the rolling aggregate for one category over one window.
func (m *Monitor) Stats(category string, window time.Duration, now time.Time) WindowStats {
	return m.window.stats(category, window, now)
}

// SweepTimeouts marks every pending/running record past its timeout deadline
// as TIMEOUT and returns its transient allocation to the pools. Returns the
// number of records swept.
func (m *Monitor) SweepTimeouts(ctx context.Context, now time.Time) (int, error) {
	overdue, err := m.repo.FindOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("monitor: failed to find overdue records: %w", err)
	}

	var sweepErrs *multierror.Error
	swept := 0
	for _, record := range overdue {
		if err := record.MarkAsTimedOut(); err != nil {
			sweepErrs = multierror.Append(sweepErrs, err)
			continue
		}
		if err := m.repo.UpdateExecutionRecord(ctx, record); err != nil {
			sweepErrs = multierror.Append(sweepErrs, fmt.Errorf("monitor: failed to persist timeout of record %s: %w", record.ID, err))
			continue
		}
		if cat, ok := m.categories[record.Category]; ok {
			dispatch.ReleaseAllocation(ctx, m.repo, cat, record)
		}
		m.ObserveOutcome(record)
		m.recorder.RecordExecutionOutcome(ctx, record)
		swept++
	}
	if swept > 0 {
		logger.Warnf("Monitor: swept %d timed-out record(s).", swept)
	}
	return swept, sweepErrs.ErrorOrNil()
}

// Evaluate runs the threshold rules over the rolling windows, persists and
// delivers deduplicated alerts, generates advisory recommendations, and
// snapshots pool usage. Alerts already open for the same type and category are
// not raised again.
func (m *Monitor) Evaluate(ctx context.Context, now time.Time) ([]*model.Alert, []*model.Recommendation, error) {
	open, err := m.repo.FindOpenAlerts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("monitor: failed to load open alerts: %w", err)
	}
	openKeys := make(map[string]struct{}, len(open))
	for _, a := range open {
		openKeys[a.Type+"/"+a.Category] = struct{}{}
	}

	var alerts []*model.Alert
	var recommendations []*model.Recommendation
	for _, category := range m.window.categories() {
		a, r := m.evaluateCategory(category, now)
		alerts = append(alerts, a...)
		recommendations = append(recommendations, r...)
	}

	var evalErrs *multierror.Error
	raised := alerts[:0]
	for _, alert := range alerts {
		key := alert.Type + "/" + alert.Category
		if _, dup := openKeys[key]; dup {
			continue
		}
		openKeys[key] = struct{}{}
		if err := m.repo.SaveAlert(ctx, alert); err != nil {
			evalErrs = multierror.Append(evalErrs, err)
			continue
		}
		m.recorder.RecordAlert(ctx, alert)
		if m.notifier != nil {
			m.notifier.NotifyAlert(ctx, alert)
		}
		raised = append(raised, alert)
	}

	for _, rec := range recommendations {
		if err := m.repo.SaveRecommendation(ctx, rec); err != nil {
			evalErrs = multierror.Append(evalErrs, err)
		}
	}

	if err := m.samplePools(ctx, now); err != nil {
		evalErrs = multierror.Append(evalErrs, err)
	}
	return raised, recommendations, evalErrs.ErrorOrNil()
}

// evaluateCategory applies the per-metric threshold rules to one category.
func (m *Monitor) evaluateCategory(category string, now time.Time) ([]*model.Alert, []*model.Recommendation) {
	var alerts []*model.Alert
	var recs []*model.Recommendation
	t := m.cfg.AlertThresholds

	medium := m.window.stats(category, windowMedium, now)
	if medium.Throughput > 0 && medium.SuccessRate < t.MinSuccessRate {
		alerts = append(alerts, model.NewAlert("low_success_rate", model.SeverityWarning, category,
			fmt.Sprintf("category '%s' success rate %.2f over 5m is below %.2f", category, medium.SuccessRate, t.MinSuccessRate),
			medium.SuccessRate, t.MinSuccessRate))
		recs = append(recs, model.NewRecommendation(category, "shrink_batch",
			fmt.Sprintf("success rate %.2f over 5m, smaller batches reduce blast radius", medium.SuccessRate)))
	}
	if medium.ErrorCount > t.MaxErrorCount {
		alerts = append(alerts, model.NewAlert("error_count", model.SeverityCritical, category,
			fmt.Sprintf("category '%s' produced %d errors over 5m, threshold is %d", category, medium.ErrorCount, t.MaxErrorCount),
			float64(medium.ErrorCount), float64(t.MaxErrorCount)))
		recs = append(recs, model.NewRecommendation(category, "throttle_category",
			fmt.Sprintf("%d errors over 5m, pausing the category limits damage while the cause is investigated", medium.ErrorCount)))
	}
	maxMean := time.Duration(t.MaxMeanDurationSeconds) * time.Second
	if medium.Throughput > 0 && medium.MeanDuration > maxMean {
		alerts = append(alerts, model.NewAlert("slow_executions", model.SeverityWarning, category,
			fmt.Sprintf("category '%s' mean duration %s over 5m exceeds %s", category, medium.MeanDuration, maxMean),
			medium.MeanDuration.Seconds(), maxMean.Seconds()))
	}

	long := m.window.stats(category, windowLong, now)
	if long.Cost > t.MaxHourlyCost {
		alerts = append(alerts, model.NewAlert("hourly_cost", model.SeverityWarning, category,
			fmt.Sprintf("category '%s' spent %.2f over 1h, threshold is %.2f", category, long.Cost, t.MaxHourlyCost),
			long.Cost, t.MaxHourlyCost))
		recs = append(recs, model.NewRecommendation(category, "shrink_batch",
			fmt.Sprintf("hourly cost %.2f exceeds %.2f", long.Cost, t.MaxHourlyCost)))
	}
	return alerts, recs
}

// samplePools writes one usage sample per pool and feeds pool utilization to
// the metric recorder.
func (m *Monitor) samplePools(ctx context.Context, now time.Time) error {
	pools, err := m.repo.FindAllPools(ctx)
	if err != nil {
		return fmt.Errorf("monitor: failed to load pools for sampling: %w", err)
	}
	var sampleErrs *multierror.Error
	for _, pool := range pools {
		m.recorder.RecordPoolUtilization(ctx, pool)
		if err := m.repo.SaveUsageSample(ctx, model.NewUsageSample(pool, now)); err != nil {
			sampleErrs = multierror.Append(sampleErrs, err)
		}
	}
	return sampleErrs.ErrorOrNil()
}
