package planner

import (
	"math"
	"time"

	admission "github.com/pressflow/pacer/pkg/coordinator/core/admission"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// costRiskFraction flags a plan consuming more than this share of the
// remaining budget.
const costRiskFraction = 0.8

// Planner turns admitted candidates into an ordered, resource-bounded plan
// with staggered start offsets, dependency ordering, and a risk assessment.
type Planner struct {
	cfg        config.CoordinatorConfig
	categories map[string]*model.WorkCategory
}

// NewPlanner creates an execution Planner.
func NewPlanner(cfg config.CoordinatorConfig, categories []*model.WorkCategory) *Planner {
	byID := make(map[string]*model.WorkCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &Planner{cfg: cfg, categories: byID}
}

// BuildPlan consumes the admission results in the scheduler's ranking order.
// Each task's batch size is recomputed against the remaining budget and quota;
// tasks whose recomputed size reaches zero are dropped. The plan never carries
// more than maxTasks tasks, so a tick cannot dispatch past the concurrency
// headroom measured at the gate. Aggregator tasks are reordered after the
// categories they summarize.
func (p *Planner) BuildPlan(results []*admission.Result, snapshot admission.Snapshot, maxTasks int) *model.ExecutionPlan {
	budgetPool, haveBudget := findPoolByType(snapshot, model.ResourceTypeBudget)
	quotaPool, haveQuota := findPoolByType(snapshot, model.ResourceTypeQuota)

	remainingBudget := math.Inf(1)
	if haveBudget {
		remainingBudget = budgetPool.Remaining()
	}
	initialBudget := remainingBudget
	remainingQuota := math.Inf(1)
	if haveQuota {
		remainingQuota = quotaPool.Remaining()
	}

	var tasks []*model.PlannedTask
	for _, r := range results {
		if !r.Feasible {
			continue
		}
		cand := r.Candidate
		if len(tasks) >= maxTasks {
			cand.AddReason("planner: dropped, concurrency headroom exhausted (%d slot(s))", maxTasks)
			logger.Infof("Planner: dropped category '%s', plan already fills %d concurrency slot(s)", cand.CategoryID, maxTasks)
			continue
		}
		cat, ok := p.categories[cand.CategoryID]
		if !ok {
			logger.Warnf("Planner: dropping candidate with unknown category '%s'", cand.CategoryID)
			continue
		}

		batch := p.fitBatch(cand, cat, remainingBudget, remainingQuota)
		if batch <= 0 {
			cand.AddReason("planner: dropped, no headroom for even one item")
			logger.Infof("Planner: dropped category '%s', recomputed batch size is zero", cand.CategoryID)
			continue
		}
		if batch < cand.BatchSize {
			cand.AddReason("planner: batch shrunk %d -> %d to fit remaining headroom", cand.BatchSize, batch)
		}

		footprint := cat.FootprintFor(batch)
		// One connection slot per dispatched task.
		footprint.Connections = 1
		remainingBudget -= footprint.Cost
		remainingQuota -= footprint.ExternalCalls

		tasks = append(tasks, &model.PlannedTask{
			CategoryID:           cand.CategoryID,
			BatchSize:            batch,
			EstimatedCost:        footprint.Cost,
			Footprint:            footprint,
			DependsOn:            cat.Aggregates,
			Priority:             cand.Priority,
			PredictedSuccessRate: cand.PredictedSuccessRate,
			EstimatedDuration:    cat.EstimatedDurationFor(batch),
		})
	}

	orderAfterDependencies(tasks)

	gap := time.Duration(p.cfg.StartOffsetGapSeconds) * time.Second
	plan := &model.ExecutionPlan{Tasks: tasks}
	for i, t := range tasks {
		t.ExecutionOrder = i + 1
		t.StartOffset = time.Duration(i) * gap
		plan.TotalMemoryMB += t.Footprint.MemoryMB
		plan.TotalCalls += t.Footprint.ExternalCalls
		plan.TotalCost += t.EstimatedCost
		plan.TotalDuration += t.EstimatedDuration
	}
	if plan.TotalCost > 0 {
		plan.EfficiencyScore = float64(len(tasks)) / plan.TotalCost
	}

	p.assessRisk(plan, initialBudget, snapshot)
	return plan
}

// fitBatch bounds the requested batch by the remaining budget and quota.
func (p *Planner) fitBatch(cand *model.SchedulingCandidate, cat *model.WorkCategory, remainingBudget, remainingQuota float64) int {
	batch := cand.BatchSize
	if cat.CostPerItem > 0 {
		if affordable := int(math.Floor(remainingBudget / cat.CostPerItem)); affordable < batch {
			batch = affordable
		}
	}
	if cat.CallsPerItem > 0 {
		if callable := int(math.Floor(remainingQuota / cat.CallsPerItem)); callable < batch {
			batch = callable
		}
	}
	if batch < 0 {
		batch = 0
	}
	return batch
}

// assessRisk attaches risk flags to the finished plan.
func (p *Planner) assessRisk(plan *model.ExecutionPlan, initialBudget float64, snapshot admission.Snapshot) {
	if plan.Empty() {
		return
	}
	if !math.IsInf(initialBudget, 1) && plan.TotalCost > costRiskFraction*initialBudget {
		plan.RiskFlags = append(plan.RiskFlags, model.RiskCost)
	}
	if memPool, ok := findPoolByType(snapshot, model.ResourceTypeMemory); ok && plan.TotalMemoryMB > memPool.Remaining() {
		plan.RiskFlags = append(plan.RiskFlags, model.RiskResource)
	}
	if plan.TotalDuration > time.Duration(p.cfg.TickPeriodSeconds)*time.Second {
		plan.RiskFlags = append(plan.RiskFlags, model.RiskTiming)
	}
	for _, f := range plan.RiskFlags {
		logger.Warnf("Planner: plan carries risk flag %s (cost=%.2f, memory=%.0fMB, duration=%s)",
			f, plan.TotalCost, plan.TotalMemoryMB, plan.TotalDuration)
	}
}

// orderAfterDependencies moves each task after the last task it depends on,
// preserving the scheduler's relative ranking otherwise. Dependency chains are
// shallow (aggregators depend on non-aggregators), so one pass per task suffices.
func orderAfterDependencies(tasks []*model.PlannedTask) {
	// Cap total moves so a cyclic dependency in configuration cannot loop forever.
	moves := 0
	maxMoves := len(tasks) * len(tasks)
	for i := 0; i < len(tasks); i++ {
		t := tasks[i]
		last := -1
		for j, other := range tasks {
			if j != i && dependsOn(t, other.CategoryID) && j > last {
				last = j
			}
		}
		if last > i && moves < maxMoves {
			// Shift the block left and reinsert t after its last dependency.
			copy(tasks[i:last], tasks[i+1:last+1])
			tasks[last] = t
			moves++
			i--
		}
	}
}

func dependsOn(t *model.PlannedTask, category string) bool {
	for _, d := range t.DependsOn {
		if d == category {
			return true
		}
	}
	return false
}

func findPoolByType(snapshot admission.Snapshot, rtype model.ResourceType) (model.ResourcePool, bool) {
	for _, p := range snapshot {
		if p.Type == rtype {
			return p, true
		}
	}
	return model.ResourcePool{}, false
}
