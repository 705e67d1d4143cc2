// Package gorm_test provides unit tests for the SQL coordinator repository,
// specifically for the guarded resource pool updates, using a mocked driver.
package gorm_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbadapter "github.com/pressflow/pacer/pkg/coordinator/adapter/database"
	dbconfig "github.com/pressflow/pacer/pkg/coordinator/adapter/database/config"
	gormadapter "github.com/pressflow/pacer/pkg/coordinator/adapter/database/gorm"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	gormrepo "github.com/pressflow/pacer/pkg/coordinator/infrastructure/repository/gorm"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
)

// staticDBResolver serves one pre-built connection for any name.
type staticDBResolver struct {
	conn dbadapter.DBConnection
}

func (r *staticDBResolver) ResolveDBConnection(_ context.Context, _ string) (dbadapter.DBConnection, error) {
	return r.conn, nil
}

func (r *staticDBResolver) CloseAll() error { return nil }

// setupGormMock sets up a GORM handle over a mocked SQL driver and the
// repository under test.
func setupGormMock(t *testing.T) (sqlmock.Sqlmock, repository.CoordinatorRepository) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	assert.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	assert.NoError(t, err)

	cfg := dbconfig.DatabaseConfig{Type: "mock_db"}
	conn := gormadapter.NewGormDBAdapter(gormDB, cfg, "mock_db")
	repo := gormrepo.NewGormCoordinatorRepository(&staticDBResolver{conn: conn}, "mock_db")

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return mock, repo
}

func poolRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"name", "type", "used", "capacity", "soft_limit_pct", "hard_limit_pct",
		"burst_allowance", "consecutive_errors", "available", "version", "last_updated",
	}).AddRow("budget", string(model.ResourceTypeBudget), 40.0, 100.0, 0.7, 0.9, 10.0, 0, true, 3, time.Now())
}

func TestReservePool_GuardedUpdateSucceeds(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE .pacer_resource_pool. SET .* WHERE name = .* AND used \\+ .* <= capacity \\+ burst_allowance").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "budget", 2.1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.ReservePool(context.Background(), "budget", 2.1))
}

func TestReservePool_GuardRejectsOvershoot(t *testing.T) {
	mock, repo := setupGormMock(t)

	// The guarded UPDATE matches no row; the follow-up read finds the pool, so
	// the reservation failed on headroom, not existence.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE .pacer_resource_pool.").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "budget", 70.0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM .pacer_resource_pool. WHERE name = ").
		WithArgs("budget", 1).
		WillReturnRows(poolRow())

	err := repo.ReservePool(context.Background(), "budget", 70.0)
	assert.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrPoolExhausted)
	assert.Equal(t, exception.KindResourceExhaustion, exception.KindOf(err))
}

func TestReservePool_UnknownPool(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE .pacer_resource_pool.").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "nope", 1.0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM .pacer_resource_pool. WHERE name = ").
		WithArgs("nope", 1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	err := repo.ReservePool(context.Background(), "nope", 1.0)
	assert.ErrorIs(t, err, repository.ErrPoolNotFound)
}

func TestReleasePool_ClampsAtZeroInSQL(t *testing.T) {
	mock, repo := setupGormMock(t)

	// The CASE expression keeps the floor in the statement itself, so a double
	// release cannot drive the counter negative.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE .pacer_resource_pool. SET .*CASE WHEN used - .* < 0 THEN 0 ELSE used - .* END").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "budget").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.ReleasePool(context.Background(), "budget", 5.0))
}

func TestFindPoolByName_MapsRow(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectQuery("SELECT .* FROM .pacer_resource_pool. WHERE name = ").
		WithArgs("budget", 1).
		WillReturnRows(poolRow())

	pool, err := repo.FindPoolByName(context.Background(), "budget")
	assert.NoError(t, err)
	assert.Equal(t, "budget", pool.Name)
	assert.Equal(t, model.ResourceTypeBudget, pool.Type)
	assert.Equal(t, 40.0, pool.Used)
	assert.Equal(t, 100.0, pool.Capacity)
	assert.Equal(t, 10.0, pool.BurstAllowance)
	assert.Equal(t, 3, pool.Version)
	assert.True(t, pool.Available)
}

func TestFindPoolByName_NotFound(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectQuery("SELECT .* FROM .pacer_resource_pool. WHERE name = ").
		WithArgs("nope", 1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := repo.FindPoolByName(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrPoolNotFound)
}

func TestUpdateExecutionRecord_OptimisticLocking(t *testing.T) {
	mock, repo := setupGormMock(t)

	record := model.NewExecutionRecord("content", 4, 80, 1.4, model.ResourceFootprint{},
		time.Now(), time.Now().Add(time.Hour), 0, "worker-1")
	record.Version = 2

	// Another writer bumped the version first; the conditional UPDATE matches
	// nothing and the in-memory version must roll back.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE .pacer_execution_record. SET .* WHERE id = .* AND version = ").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateExecutionRecord(context.Background(), record)
	assert.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 2, record.Version)
}
