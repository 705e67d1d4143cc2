package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// statsWindow is the trailing window used for recent reliability figures.
const statsWindow = 24 * time.Hour

// Priority score adjustments. Tiers are coarse on purpose: the score is an
// ordering device, not a forecast.
const (
	overdueBonusSevere   = 30 // minutesSinceLastRun >= 2x interval
	overdueBonusHigh     = 20 // >= 1.5x interval
	overdueBonusDue      = 10 // >= 1x interval
	backlogBonusFlood    = 20 // backlog >= 100
	backlogBonusHeavy    = 15 // >= 50
	backlogBonusModerate = 10 // >= 20
	backlogBonusLight    = 5  // >= 5
	peakHoursBonus       = 10
	businessHoursBonus   = 5
	weekendPenalty       = -5
	reliabilityBonus     = 10  // recentSuccessRate >= 0.95
	reliabilityPenalty   = -15 // recentSuccessRate < 0.8
)

// PriorityScheduler computes, per work category, a priority score and a
// go/no-go decision from time-since-last-run, backlog depth, calendar context,
// and recent reliability.
type PriorityScheduler struct {
	execRepo   repository.ExecutionRecordRepository
	queueRepo  repository.QueueRepository
	cfg        config.CoordinatorConfig
	categories []*model.WorkCategory
	location   *time.Location
}

// NewPriorityScheduler creates a PriorityScheduler over the given categories.
func NewPriorityScheduler(
	execRepo repository.ExecutionRecordRepository,
	queueRepo repository.QueueRepository,
	cfg config.CoordinatorConfig,
	categories []*model.WorkCategory,
	location *time.Location,
) *PriorityScheduler {
	if location == nil {
		location = time.UTC
	}
	return &PriorityScheduler{
		execRepo:   execRepo,
		queueRepo:  queueRepo,
		cfg:        cfg,
		categories: categories,
		location:   location,
	}
}

// Schedule evaluates every category at `now` and returns candidates sorted
// descending by priority. Ties break by lower cost/predictedSuccessRate, then
// by shorter estimated duration. Every candidate carries its reasoning trace.
func (s *PriorityScheduler) Schedule(ctx context.Context, now time.Time) ([]*model.SchedulingCandidate, error) {
	local := now.In(s.location)
	candidates := make([]*model.SchedulingCandidate, 0, len(s.categories))

	for _, cat := range s.categories {
		c, err := s.evaluate(ctx, cat, now, local)
		if err != nil {
			return nil, fmt.Errorf("scheduler: failed to evaluate category '%s': %w", cat.ID, err)
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if ae, be := a.CostEfficiency(), b.CostEfficiency(); ae != be {
			return ae < be
		}
		return a.EstimatedDuration < b.EstimatedDuration
	})
	return candidates, nil
}

func (s *PriorityScheduler) evaluate(ctx context.Context, cat *model.WorkCategory, now, local time.Time) (*model.SchedulingCandidate, error) {
	c := &model.SchedulingCandidate{
		CategoryID: cat.ID,
		Priority:   cat.BasePriority,
	}
	c.AddReason("base priority %.1f", cat.BasePriority)

	minutesSince, everRan, err := s.minutesSinceLastRun(ctx, cat.ID, now)
	if err != nil {
		return nil, err
	}
	intervalMinutes := cat.BaseInterval.Minutes()
	if everRan {
		c.AddReason("last completed run %.0f minutes ago (interval %.0fm)", minutesSince, intervalMinutes)
	} else {
		c.AddReason("no completed run on record, treating as maximally overdue")
	}

	if bonus := overdueBonus(minutesSince, intervalMinutes); bonus > 0 {
		c.Priority += float64(bonus)
		c.AddReason("overdue bonus +%d", bonus)
	}

	backlog, err := s.queueRepo.CountBacklog(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	if bonus := backlogBonus(backlog); bonus > 0 {
		c.Priority += float64(bonus)
		c.AddReason("backlog %d items, bonus +%d", backlog, bonus)
	} else {
		c.AddReason("backlog %d items", backlog)
	}

	if bonus := calendarBonus(local); bonus != 0 {
		c.Priority += float64(bonus)
		c.AddReason("calendar adjustment %+d (business=%t peak=%t weekend=%t)",
			bonus, isBusinessHours(local), isPeakHours(local), isWeekend(local))
	}

	rate, sampled, err := s.recentSuccessRate(ctx, cat, now)
	if err != nil {
		return nil, err
	}
	c.PredictedSuccessRate = rate
	if sampled {
		c.AddReason("recent success rate %.2f", rate)
	} else {
		c.AddReason("no outcome history, defaulting success rate to configured floor %.2f", rate)
	}
	switch {
	case rate >= 0.95:
		c.Priority += reliabilityBonus
		c.AddReason("reliability bonus +%d", reliabilityBonus)
	case rate < 0.8:
		c.Priority += reliabilityPenalty
		c.AddReason("reliability penalty %d", reliabilityPenalty)
	}

	c.BatchSize = batchSizeFor(cat, backlog)
	c.EstimatedCost = cat.CostPerItem * float64(c.BatchSize)
	c.EstimatedDuration = cat.EstimatedDurationFor(c.BatchSize)
	c.AddReason("proposed batch size %d (kind=%s), estimated cost %.2f, estimated duration %s",
		c.BatchSize, cat.Kind, c.EstimatedCost, c.EstimatedDuration)

	// Go/no-go. All three conditions must hold.
	switch {
	case c.Priority < s.cfg.DispatchThreshold:
		c.AddReason("skip: priority %.1f below dispatch threshold %.1f", c.Priority, s.cfg.DispatchThreshold)
	case minutesSince < 0.9*intervalMinutes:
		c.AddReason("skip: only %.0fm since last run, below 90%% of interval (%.0fm)", minutesSince, 0.9*intervalMinutes)
	case rate < cat.SuccessFloor:
		c.AddReason("skip: success rate %.2f below category floor %.2f", rate, cat.SuccessFloor)
	case c.BatchSize <= 0:
		c.AddReason("skip: nothing to batch")
	default:
		c.ShouldExecute = true
		c.AddReason("eligible: priority %.1f >= threshold %.1f", c.Priority, s.cfg.DispatchThreshold)
	}

	logger.Debugf("Scheduler: category '%s' priority=%.1f shouldExecute=%t batch=%d",
		cat.ID, c.Priority, c.ShouldExecute, c.BatchSize)
	return c, nil
}

// minutesSinceLastRun reports minutes since the category's last COMPLETED
// record. A category that never completed is maximally overdue.
func (s *PriorityScheduler) minutesSinceLastRun(ctx context.Context, category string, now time.Time) (float64, bool, error) {
	last, err := s.execRepo.FindLastCompleted(ctx, category)
	if err != nil {
		if errors.Is(err, repository.ErrExecutionRecordNotFound) {
			return 1 << 20, false, nil
		}
		return 0, false, err
	}
	ref := last.CompletedAt
	if ref == nil {
		ref = &last.CreateTime
	}
	return now.Sub(*ref).Minutes(), true, nil
}

// recentSuccessRate returns successes/(successes+failures) over the trailing
// stats window, or the configured floor when no history exists.
func (s *PriorityScheduler) recentSuccessRate(ctx context.Context, cat *model.WorkCategory, now time.Time) (float64, bool, error) {
	stats, err := s.execRepo.CategoryStatsSince(ctx, cat.ID, now.Add(-statsWindow))
	if err != nil {
		return 0, false, err
	}
	if stats == nil || stats.Total == 0 {
		return cat.SuccessFloor, false, nil
	}
	return stats.SuccessRate, true, nil
}

func overdueBonus(minutesSince, intervalMinutes float64) int {
	if intervalMinutes <= 0 {
		return 0
	}
	ratio := minutesSince / intervalMinutes
	switch {
	case ratio >= 2:
		return overdueBonusSevere
	case ratio >= 1.5:
		return overdueBonusHigh
	case ratio >= 1:
		return overdueBonusDue
	default:
		return 0
	}
}

func backlogBonus(backlog int) int {
	switch {
	case backlog >= 100:
		return backlogBonusFlood
	case backlog >= 50:
		return backlogBonusHeavy
	case backlog >= 20:
		return backlogBonusModerate
	case backlog >= 5:
		return backlogBonusLight
	default:
		return 0
	}
}

func calendarBonus(local time.Time) int {
	bonus := 0
	if isPeakHours(local) {
		bonus += peakHoursBonus
	}
	if isBusinessHours(local) {
		bonus += businessHoursBonus
	}
	if isWeekend(local) {
		bonus += weekendPenalty
	}
	return bonus
}

// batchSizeFor applies the category-specific batch heuristic, bounded by the
// category's MaxBatchSize.
func batchSizeFor(cat *model.WorkCategory, backlog int) int {
	var proposed int
	switch cat.Kind {
	case model.CategoryKindLightweight:
		proposed = backlog
	case model.CategoryKindAggregator:
		// Aggregators summarize other categories; one summary unit per run.
		proposed = 1
	default:
		proposed = backlog / 5
	}
	if proposed > cat.MaxBatchSize {
		proposed = cat.MaxBatchSize
	}
	return proposed
}
