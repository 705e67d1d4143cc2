package inmemory

import (
	"context"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
)

// --- MonitoringRepository implementation ---

func (r *InMemoryCoordinatorRepository) SaveAlert(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *alert
	r.alerts[alert.ID] = &cp
	return nil
}

func (r *InMemoryCoordinatorRepository) UpdateAlert(_ context.Context, alert *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.alerts[alert.ID]; !exists {
		return repository.ErrAlertNotFound
	}
	cp := *alert
	r.alerts[alert.ID] = &cp
	return nil
}

func (r *InMemoryCoordinatorRepository) FindOpenAlerts(_ context.Context) ([]*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Alert
	for _, alert := range r.alerts {
		if alert.ResolvedAt == nil {
			cp := *alert
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemoryCoordinatorRepository) SaveRecommendation(_ context.Context, rec *model.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.recommendations = append(r.recommendations, &cp)
	return nil
}

func (r *InMemoryCoordinatorRepository) FindRecommendationsSince(_ context.Context, since time.Time) ([]*model.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Recommendation
	for _, rec := range r.recommendations {
		if rec.CreatedAt.After(since) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemoryCoordinatorRepository) SaveUsageSample(_ context.Context, sample *model.ResourceUsageSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sample
	r.usageSamples = append(r.usageSamples, &cp)
	return nil
}

func (r *InMemoryCoordinatorRepository) FindUsageSamplesSince(_ context.Context, since time.Time) ([]*model.ResourceUsageSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ResourceUsageSample
	for _, sample := range r.usageSamples {
		if sample.SampledAt.After(since) {
			cp := *sample
			out = append(out, &cp)
		}
	}
	return out, nil
}
