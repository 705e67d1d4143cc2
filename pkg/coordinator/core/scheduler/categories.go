package scheduler

import (
	"sort"
	"time"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
)

// BuildCategories converts the static category configuration into domain
// WorkCategory values, sorted by id for deterministic iteration.
func BuildCategories(cfg *config.Config) []*model.WorkCategory {
	categories := make([]*model.WorkCategory, 0, len(cfg.Pacer.Categories))
	for id, cc := range cfg.Pacer.Categories {
		kind := model.CategoryKind(cc.Kind)
		if kind == "" {
			kind = model.CategoryKindGeneration
		}
		categories = append(categories, &model.WorkCategory{
			ID:              id,
			BaseInterval:    time.Duration(cc.BaseIntervalMinutes) * time.Minute,
			BasePriority:    cc.BasePriority,
			MaxBatchSize:    cc.MaxBatchSize,
			CostPerItem:     cc.CostPerItem,
			SuccessFloor:    cc.SuccessFloor,
			Kind:            kind,
			Aggregates:      cc.Aggregates,
			MemoryPerItemMB: cc.MemoryPerItemMB,
			CallsPerItem:    cc.CallsPerItem,
			SecondsPerItem:  cc.SecondsPerItem,
			Pools:           cc.Pools,
		})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories
}
