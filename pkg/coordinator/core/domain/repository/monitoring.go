package repository

import (
	"context"
	"errors"
	"time"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// ErrAlertNotFound is the error returned when an alert is not found.
var ErrAlertNotFound = errors.New("alert not found")

func init() {
	exception.RegisterErrorType("ErrAlertNotFound", ErrAlertNotFound)
}

type MonitoringRepository interface {
	// SaveAlert persists a newly raised alert.
	SaveAlert(ctx context.Context, alert *model.Alert) error

	// UpdateAlert updates an alert, typically to resolve it.
	UpdateAlert(ctx context.Context, alert *model.Alert) error

	// FindOpenAlerts returns all unresolved alerts. The monitor deduplicates
	// new alerts of the same type against this set.
	FindOpenAlerts(ctx context.Context) ([]*model.Alert, error)

	// SaveRecommendation persists an advisory recommendation.
	SaveRecommendation(ctx context.Context, rec *model.Recommendation) error

	// FindRecommendationsSince returns recommendations created after `since`.
	FindRecommendationsSince(ctx context.Context, since time.Time) ([]*model.Recommendation, error)

	// SaveUsageSample persists a write-once resource usage snapshot.
	SaveUsageSample(ctx context.Context, sample *model.ResourceUsageSample) error

	// FindUsageSamplesSince returns samples taken after `since`, oldest first.
	FindUsageSamplesSince(ctx context.Context, since time.Time) ([]*model.ResourceUsageSample, error)
}
