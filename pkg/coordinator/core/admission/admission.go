package admission

import (
	"context"
	"fmt"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	logger "github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Result pairs one scheduling candidate with its feasibility verdict.
type Result struct {
	Candidate *model.SchedulingCandidate
	Feasible  bool
	// Reason explains an infeasible verdict; empty when feasible.
	Reason string
}

// Snapshot is a consistent read of every pool taken once at the start of
// admission. Planning works against the snapshot for the whole tick; no task
// becomes feasible based on capacity freed later in the same tick.
type Snapshot map[string]model.ResourcePool

// Pool returns the snapshotted pool by name.
func (s Snapshot) Pool(name string) (model.ResourcePool, bool) {
	p, ok := s[name]
	return p, ok
}

// Controller marks scheduler candidates feasible or infeasible against the
// resource pools their categories consume.
type Controller struct {
	poolRepo   repository.PoolRepository
	categories map[string]*model.WorkCategory
}

// NewController creates an admission Controller.
func NewController(poolRepo repository.PoolRepository, categories []*model.WorkCategory) *Controller {
	byID := make(map[string]*model.WorkCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &Controller{poolRepo: poolRepo, categories: byID}
}

// Admit takes a consistent snapshot of all pools, then judges each executable
// candidate against the pools its category consumes. It also emits advisory
// recommendations for pools crossing their warning threshold; these are never
// auto-applied.
func (c *Controller) Admit(ctx context.Context, candidates []*model.SchedulingCandidate) ([]*Result, []*model.Recommendation, Snapshot, error) {
	pools, err := c.poolRepo.FindAllPools(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("admission: failed to load resource pools: %w", err)
	}
	snapshot := make(Snapshot, len(pools))
	for _, p := range pools {
		snapshot[p.Name] = p.Snapshot()
	}

	var recommendations []*model.Recommendation
	for _, p := range pools {
		if p.Status() == model.PoolStatusWarning {
			recommendations = append(recommendations, model.NewRecommendation(
				"",
				"reduce_load",
				fmt.Sprintf("pool '%s' at %.0f%% utilization, consider shrinking batch sizes for categories consuming it", p.Name, p.Utilization()*100),
			))
		}
	}

	results := make([]*Result, 0, len(candidates))
	for _, cand := range candidates {
		if !cand.ShouldExecute {
			continue
		}
		r := c.judge(cand, snapshot)
		if !r.Feasible {
			cand.AddReason("admission: %s", r.Reason)
			logger.Infof("Admission: category '%s' infeasible: %s", cand.CategoryID, r.Reason)
		}
		results = append(results, r)
	}
	return results, recommendations, snapshot, nil
}

// judge checks one candidate against the snapshotted pools its category maps to.
func (c *Controller) judge(cand *model.SchedulingCandidate, snapshot Snapshot) *Result {
	cat, ok := c.categories[cand.CategoryID]
	if !ok {
		return &Result{Candidate: cand, Reason: fmt.Sprintf("unknown category '%s'", cand.CategoryID)}
	}

	footprint := cat.FootprintFor(cand.BatchSize)
	for _, poolName := range cat.Pools {
		pool, ok := snapshot.Pool(poolName)
		if !ok {
			return &Result{Candidate: cand, Reason: fmt.Sprintf("pool '%s' is not tracked", poolName)}
		}
		switch pool.Status() {
		case model.PoolStatusUnavailable:
			return &Result{Candidate: cand, Reason: fmt.Sprintf("pool '%s' is unavailable", poolName)}
		case model.PoolStatusCritical:
			return &Result{Candidate: cand, Reason: fmt.Sprintf("pool '%s' is critical at %.0f%% utilization", poolName, pool.Utilization()*100)}
		}
		demand := footprint.AmountFor(pool.Type)
		if demand > pool.Remaining() {
			return &Result{Candidate: cand, Reason: fmt.Sprintf(
				"pool '%s' has %.2f remaining, demand is %.2f", poolName, pool.Remaining(), demand)}
		}
	}
	return &Result{Candidate: cand, Feasible: true}
}
