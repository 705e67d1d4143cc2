package gorm

import (
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
)

// --- Mapper functions ---

func fromDomainExecutionRecord(er *model.ExecutionRecord) *ExecutionRecordEntity {
	if er == nil {
		return nil
	}
	return &ExecutionRecordEntity{
		ID:            er.ID,
		Category:      er.Category,
		Status:        er.Status,
		Priority:      er.Priority,
		ScheduledAt:   er.ScheduledAt,
		StartedAt:     er.StartedAt,
		CompletedAt:   er.CompletedAt,
		TimeoutAt:     er.TimeoutAt,
		BatchSize:     er.BatchSize,
		CostEstimate:  er.CostEstimate,
		CostActual:    er.CostActual,
		Allocation:    er.Allocation,
		RetryCount:    er.RetryCount,
		MaxRetries:    er.MaxRetries,
		WorkerID:      er.WorkerID,
		ErrorDetail:   er.ErrorDetail,
		InputContext:  er.InputContext,
		OutputContext: er.OutputContext,
		Version:       er.Version,
		CreateTime:    er.CreateTime,
		LastUpdated:   er.LastUpdated,
	}
}

func toDomainExecutionRecord(entity *ExecutionRecordEntity) *model.ExecutionRecord {
	if entity == nil {
		return nil
	}
	return &model.ExecutionRecord{
		ID:            entity.ID,
		Category:      entity.Category,
		Status:        entity.Status,
		Priority:      entity.Priority,
		ScheduledAt:   entity.ScheduledAt,
		StartedAt:     entity.StartedAt,
		CompletedAt:   entity.CompletedAt,
		TimeoutAt:     entity.TimeoutAt,
		BatchSize:     entity.BatchSize,
		CostEstimate:  entity.CostEstimate,
		CostActual:    entity.CostActual,
		Allocation:    entity.Allocation,
		RetryCount:    entity.RetryCount,
		MaxRetries:    entity.MaxRetries,
		WorkerID:      entity.WorkerID,
		ErrorDetail:   entity.ErrorDetail,
		InputContext:  entity.InputContext,
		OutputContext: entity.OutputContext,
		Version:       entity.Version,
		CreateTime:    entity.CreateTime,
		LastUpdated:   entity.LastUpdated,
	}
}

func fromDomainQueueItem(qi *model.QueueItem) *QueueItemEntity {
	if qi == nil {
		return nil
	}
	return &QueueItemEntity{
		ID:             qi.ID,
		Category:       qi.Category,
		Payload:        qi.Payload,
		Status:         qi.Status,
		PriorityTier:   qi.PriorityTier,
		LockOwner:      qi.LockOwner,
		LockedAt:       qi.LockedAt,
		RetryCount:     qi.RetryCount,
		MaxRetries:     qi.MaxRetries,
		NextEligibleAt: qi.NextEligibleAt,
		ErrorDetail:    qi.ErrorDetail,
		ResultRef:      qi.ResultRef,
		CreateTime:     qi.CreateTime,
		LastUpdated:    qi.LastUpdated,
		Version:        qi.Version,
	}
}

func toDomainQueueItem(entity *QueueItemEntity) *model.QueueItem {
	if entity == nil {
		return nil
	}
	return &model.QueueItem{
		ID:             entity.ID,
		Category:       entity.Category,
		Payload:        entity.Payload,
		Status:         entity.Status,
		PriorityTier:   entity.PriorityTier,
		LockOwner:      entity.LockOwner,
		LockedAt:       entity.LockedAt,
		RetryCount:     entity.RetryCount,
		MaxRetries:     entity.MaxRetries,
		NextEligibleAt: entity.NextEligibleAt,
		ErrorDetail:    entity.ErrorDetail,
		ResultRef:      entity.ResultRef,
		CreateTime:     entity.CreateTime,
		LastUpdated:    entity.LastUpdated,
		Version:        entity.Version,
	}
}

func fromDomainPool(p *model.ResourcePool) *ResourcePoolEntity {
	if p == nil {
		return nil
	}
	return &ResourcePoolEntity{
		Name:              p.Name,
		Type:              p.Type,
		Used:              p.Used,
		Capacity:          p.Capacity,
		SoftLimitPct:      p.SoftLimitPct,
		HardLimitPct:      p.HardLimitPct,
		BurstAllowance:    p.BurstAllowance,
		ConsecutiveErrors: p.ConsecutiveErrors,
		Available:         p.Available,
		Version:           p.Version,
		LastUpdated:       p.LastUpdated,
	}
}

func toDomainPool(entity *ResourcePoolEntity) *model.ResourcePool {
	if entity == nil {
		return nil
	}
	return &model.ResourcePool{
		Name:              entity.Name,
		Type:              entity.Type,
		Used:              entity.Used,
		Capacity:          entity.Capacity,
		SoftLimitPct:      entity.SoftLimitPct,
		HardLimitPct:      entity.HardLimitPct,
		BurstAllowance:    entity.BurstAllowance,
		ConsecutiveErrors: entity.ConsecutiveErrors,
		Available:         entity.Available,
		Version:           entity.Version,
		LastUpdated:       entity.LastUpdated,
	}
}

func fromDomainStateEntry(e *model.CoordinatorStateEntry) *StateEntryEntity {
	if e == nil {
		return nil
	}
	return &StateEntryEntity{
		ID:                 e.ID,
		State:              e.State,
		PreviousState:      e.PreviousState,
		EnteredAt:          e.EnteredAt,
		PreviousDurationMs: e.PreviousDuration.Milliseconds(),
		Details:            e.Details,
		CreateTime:         e.CreateTime,
	}
}

func toDomainStateEntry(entity *StateEntryEntity) *model.CoordinatorStateEntry {
	if entity == nil {
		return nil
	}
	return &model.CoordinatorStateEntry{
		ID:               entity.ID,
		State:            entity.State,
		PreviousState:    entity.PreviousState,
		EnteredAt:        entity.EnteredAt,
		PreviousDuration: time.Duration(entity.PreviousDurationMs) * time.Millisecond,
		Details:          entity.Details,
		CreateTime:       entity.CreateTime,
	}
}

func fromDomainAlert(a *model.Alert) *AlertEntity {
	if a == nil {
		return nil
	}
	return &AlertEntity{
		ID:          a.ID,
		Type:        a.Type,
		Severity:    a.Severity,
		Category:    a.Category,
		Message:     a.Message,
		MetricValue: a.MetricValue,
		Threshold:   a.Threshold,
		CreatedAt:   a.CreatedAt,
		ResolvedAt:  a.ResolvedAt,
	}
}

func toDomainAlert(entity *AlertEntity) *model.Alert {
	if entity == nil {
		return nil
	}
	return &model.Alert{
		ID:          entity.ID,
		Type:        entity.Type,
		Severity:    entity.Severity,
		Category:    entity.Category,
		Message:     entity.Message,
		MetricValue: entity.MetricValue,
		Threshold:   entity.Threshold,
		CreatedAt:   entity.CreatedAt,
		ResolvedAt:  entity.ResolvedAt,
	}
}

func fromDomainRecommendation(r *model.Recommendation) *RecommendationEntity {
	if r == nil {
		return nil
	}
	return &RecommendationEntity{
		ID:        r.ID,
		Category:  r.Category,
		Action:    r.Action,
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
}

func toDomainRecommendation(entity *RecommendationEntity) *model.Recommendation {
	if entity == nil {
		return nil
	}
	return &model.Recommendation{
		ID:        entity.ID,
		Category:  entity.Category,
		Action:    entity.Action,
		Reason:    entity.Reason,
		CreatedAt: entity.CreatedAt,
	}
}

func fromDomainUsageSample(s *model.ResourceUsageSample) *UsageSampleEntity {
	if s == nil {
		return nil
	}
	return &UsageSampleEntity{
		ID:          s.ID,
		PoolName:    s.PoolName,
		Used:        s.Used,
		Capacity:    s.Capacity,
		Utilization: s.Utilization,
		SampledAt:   s.SampledAt,
	}
}

func toDomainUsageSample(entity *UsageSampleEntity) *model.ResourceUsageSample {
	if entity == nil {
		return nil
	}
	return &model.ResourceUsageSample{
		ID:          entity.ID,
		PoolName:    entity.PoolName,
		Used:        entity.Used,
		Capacity:    entity.Capacity,
		Utilization: entity.Utilization,
		SampledAt:   entity.SampledAt,
	}
}
