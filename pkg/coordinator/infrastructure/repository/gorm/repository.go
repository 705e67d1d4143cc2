package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pressflow/pacer/pkg/coordinator/adapter/database"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"

	"gorm.io/gorm"
)

// GormCoordinatorRepository implements repository.CoordinatorRepository on a
// relational store through GORM. All conditional updates (claim-and-lock,
// reserve-and-write, optimistic versioning) are single statements so that
// concurrent coordinators and workers cannot interleave between read and write.
type GormCoordinatorRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the name of the database connection used by this repository (e.g., "metadata").
	dbName string
}

// NewGormCoordinatorRepository creates a new GormCoordinatorRepository.
func NewGormCoordinatorRepository(dbResolver database.DBConnectionResolver, dbName string) repository.CoordinatorRepository {
	return &GormCoordinatorRepository{
		dbResolver: dbResolver,
		dbName:     dbName,
	}
}

// conn resolves the repository's database connection.
func (r *GormCoordinatorRepository) conn(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to resolve DB connection '%s'", r.dbName), exception.KindSystemFault, err, false)
	}
	return conn, nil
}

// db resolves the GORM handle bound to ctx.
func (r *GormCoordinatorRepository) db(ctx context.Context) (*gorm.DB, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn.DB().WithContext(ctx), nil
}

// Close releases all database connections used by the repository.
func (r *GormCoordinatorRepository) Close() error {
	return r.dbResolver.CloseAll()
}

// --- ExecutionRecordRepository implementation ---

func (r *GormCoordinatorRepository) SaveExecutionRecord(ctx context.Context, record *model.ExecutionRecord) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(fromDomainExecutionRecord(record)).Error; err != nil {
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to save ExecutionRecord (ID: %s)", record.ID), exception.KindSystemFault, err, true)
	}
	return nil
}

func (r *GormCoordinatorRepository) UpdateExecutionRecord(ctx context.Context, record *model.ExecutionRecord) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	originalVersion := record.Version
	record.Version++
	entity := fromDomainExecutionRecord(record)

	res := db.Model(&ExecutionRecordEntity{}).
		Where("id = ? AND version = ?", record.ID, originalVersion).
		Select("*").Omit("id", "create_time").
		Updates(entity)
	if res.Error != nil {
		record.Version = originalVersion
		return exception.NewCoordinatorError("repository",
			fmt.Sprintf("failed to update ExecutionRecord (ID: %s)", record.ID), exception.KindSystemFault, res.Error, true)
	}
	if res.RowsAffected == 0 {
		record.Version = originalVersion
		return exception.NewOptimisticLockingFailureException("repository",
			fmt.Sprintf("ExecutionRecord (ID: %s) with version %d not found for update", record.ID, originalVersion), nil)
	}
	return nil
}

func (r *GormCoordinatorRepository) FindExecutionRecordByID(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity ExecutionRecordEntity
	if err := db.Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrExecutionRecordNotFound
		}
		return nil, err
	}
	return toDomainExecutionRecord(&entity), nil
}

func (r *GormCoordinatorRepository) FindActiveExecutions(ctx context.Context) ([]*model.ExecutionRecord, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []ExecutionRecordEntity
	if err := db.Where("status IN ?", activeStatuses()).Order("scheduled_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	records := make([]*model.ExecutionRecord, len(entities))
	for i := range entities {
		records[i] = toDomainExecutionRecord(&entities[i])
	}
	return records, nil
}

func (r *GormCoordinatorRepository) CountActiveExecutions(ctx context.Context) (int, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&ExecutionRecordEntity{}).Where("status IN ?", activeStatuses()).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormCoordinatorRepository) CountActiveByCategory(ctx context.Context, category string) (int, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&ExecutionRecordEntity{}).
		Where("category = ? AND status IN ?", category, activeStatuses()).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormCoordinatorRepository) FindLastCompleted(ctx context.Context, category string) (*model.ExecutionRecord, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entity ExecutionRecordEntity
	err = db.Where("category = ? AND status = ?", category, model.ExecutionStatusCompleted).
		Order("completed_at DESC").First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrExecutionRecordNotFound
		}
		return nil, err
	}
	return toDomainExecutionRecord(&entity), nil
}

func (r *GormCoordinatorRepository) CategoryStatsSince(ctx context.Context, category string, since time.Time) (*repository.CategoryStats, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []ExecutionRecordEntity
	if err := db.Where("category = ? AND status IN ? AND completed_at > ?",
		category, terminalStatuses(), since).Find(&entities).Error; err != nil {
		return nil, err
	}

	stats := &repository.CategoryStats{Category: category}
	var totalDuration time.Duration
	for i := range entities {
		record := toDomainExecutionRecord(&entities[i])
		stats.Total++
		stats.TotalCost += record.CostActual
		totalDuration += record.Duration()
		if record.Status == model.ExecutionStatusCompleted {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
		stats.MeanDuration = totalDuration / time.Duration(stats.Total)
	}
	return stats, nil
}

func (r *GormCoordinatorRepository) CountFailuresSince(ctx context.Context, since time.Time) (int, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = db.Model(&ExecutionRecordEntity{}).
		Where("status IN ? AND completed_at > ?",
			[]model.ExecutionStatus{model.ExecutionStatusFailed, model.ExecutionStatusTimeout}, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormCoordinatorRepository) FindOverdue(ctx context.Context, now time.Time) ([]*model.ExecutionRecord, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []ExecutionRecordEntity
	if err := db.Where("status IN ? AND timeout_at < ?", activeStatuses(), now).Find(&entities).Error; err != nil {
		return nil, err
	}
	records := make([]*model.ExecutionRecord, len(entities))
	for i := range entities {
		records[i] = toDomainExecutionRecord(&entities[i])
	}
	return records, nil
}

func (r *GormCoordinatorRepository) FindTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.ExecutionRecord, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entities []ExecutionRecordEntity
	if err := db.Where("status IN ? AND completed_at < ?", terminalStatuses(), cutoff).
		Order("completed_at ASC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, err
	}
	records := make([]*model.ExecutionRecord, len(entities))
	for i := range entities {
		records[i] = toDomainExecutionRecord(&entities[i])
	}
	return records, nil
}

func (r *GormCoordinatorRepository) DeleteExecutionRecords(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&ExecutionRecordEntity{}).Error
}

func activeStatuses() []model.ExecutionStatus {
	return []model.ExecutionStatus{model.ExecutionStatusPending, model.ExecutionStatusRunning}
}

func terminalStatuses() []model.ExecutionStatus {
	return []model.ExecutionStatus{
		model.ExecutionStatusCompleted,
		model.ExecutionStatusFailed,
		model.ExecutionStatusTimeout,
		model.ExecutionStatusCancelled,
	}
}
