// Package resources seeds the shared resource pools from configuration.
package resources

import (
	"context"
	"errors"

	"go.uber.org/fx"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// Pool names used throughout the coordinator. Category configurations refer
// to pools by these names.
const (
	PoolBudget      = "budget"
	PoolQuota       = "quota"
	PoolMemory      = "memory"
	PoolConnections = "connections"
)

// SeedResourcePools creates the configured resource pools on startup. Existing
// pools keep their current usage counters; only missing pools are created, so
// restarts never forget in-flight reservations.
func SeedResourcePools(ctx context.Context, repo repository.PoolRepository, cfg *config.Config) error {
	rc := cfg.Pacer.Resources
	pools := []*model.ResourcePool{
		model.NewResourcePool(PoolBudget, model.ResourceTypeBudget, rc.DailyBudget, rc.DailyBudget*rc.BurstAllowancePct),
		model.NewResourcePool(PoolQuota, model.ResourceTypeQuota, rc.ExternalCallQuota, rc.ExternalCallQuota*rc.BurstAllowancePct),
		model.NewResourcePool(PoolMemory, model.ResourceTypeMemory, rc.MemoryCeilingMB, rc.MemoryCeilingMB*rc.BurstAllowancePct),
		model.NewResourcePool(PoolConnections, model.ResourceTypeConnections, rc.ConnectionCeiling, rc.ConnectionCeiling*rc.BurstAllowancePct),
	}

	for _, pool := range pools {
		existing, err := repo.FindPoolByName(ctx, pool.Name)
		if err != nil {
			if !errors.Is(err, repository.ErrPoolNotFound) {
				return err
			}
			if err := repo.SavePool(ctx, pool); err != nil {
				return err
			}
			logger.Infof("Seeded resource pool '%s' (type: %s, capacity: %.0f, burst: %.0f).",
				pool.Name, pool.Type, pool.Capacity, pool.BurstAllowance)
			continue
		}
		// Capacity changes in config take effect on restart; usage carries over.
		if existing.Capacity != pool.Capacity || existing.BurstAllowance != pool.BurstAllowance {
			existing.Capacity = pool.Capacity
			existing.BurstAllowance = pool.BurstAllowance
			if err := repo.SavePool(ctx, existing); err != nil {
				return err
			}
			logger.Infof("Updated resource pool '%s' capacity to %.0f (burst: %.0f).",
				pool.Name, pool.Capacity, pool.BurstAllowance)
		}
	}
	return nil
}

// RegisterSeedHook seeds the pools during application startup.
func RegisterSeedHook(lc fx.Lifecycle, repo repository.CoordinatorRepository, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return SeedResourcePools(ctx, repo, cfg)
		},
	})
}

// Module seeds the resource pools on startup.
var Module = fx.Options(
	fx.Invoke(RegisterSeedHook),
)
