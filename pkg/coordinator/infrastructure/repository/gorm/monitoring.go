package gorm

import (
	"context"
	"fmt"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// --- MonitoringRepository implementation ---

func (r *GormCoordinatorRepository) SaveAlert(ctx context.Context, alert *model.Alert) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(fromDomainAlert(alert)).Error; err != nil {
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to save Alert (ID: %s)", alert.ID), exception.KindSystemFault, err, true)
	}
	return nil
}

func (r *GormCoordinatorRepository) UpdateAlert(ctx context.Context, alert *model.Alert) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&AlertEntity{}).
		Where("id = ?", alert.ID).
		Select("*").Omit("id").
		Updates(fromDomainAlert(alert))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrAlertNotFound
	}
	return nil
}

func (r *GormCoordinatorRepository) FindOpenAlerts(ctx context.Context) ([]*model.Alert, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []AlertEntity
	if err := db.Where("resolved_at IS NULL").Order("created_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	alerts := make([]*model.Alert, len(entities))
	for i := range entities {
		alerts[i] = toDomainAlert(&entities[i])
	}
	return alerts, nil
}

func (r *GormCoordinatorRepository) SaveRecommendation(ctx context.Context, rec *model.Recommendation) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	return db.Create(fromDomainRecommendation(rec)).Error
}

func (r *GormCoordinatorRepository) FindRecommendationsSince(ctx context.Context, since time.Time) ([]*model.Recommendation, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []RecommendationEntity
	if err := db.Where("created_at > ?", since).Order("created_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	recs := make([]*model.Recommendation, len(entities))
	for i := range entities {
		recs[i] = toDomainRecommendation(&entities[i])
	}
	return recs, nil
}

func (r *GormCoordinatorRepository) SaveUsageSample(ctx context.Context, sample *model.ResourceUsageSample) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	return db.Create(fromDomainUsageSample(sample)).Error
}

func (r *GormCoordinatorRepository) FindUsageSamplesSince(ctx context.Context, since time.Time) ([]*model.ResourceUsageSample, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []UsageSampleEntity
	if err := db.Where("sampled_at > ?", since).Order("sampled_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	samples := make([]*model.ResourceUsageSample, len(entities))
	for i := range entities {
		samples[i] = toDomainUsageSample(&entities[i])
	}
	return samples, nil
}
