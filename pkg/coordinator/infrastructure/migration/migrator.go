// Package migration applies the coordinator's schema migrations on startup.
// SQL files are embedded in the binary and applied through golang-migrate with
// the driver matching the resolved connection's engine.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressflow/pacer/pkg/coordinator/adapter/database"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationsTable records applied versions alongside the coordinator tables.
const migrationsTable = "pacer_schema_migrations"

// Migrator applies embedded schema migrations to one database connection.
type Migrator struct {
	conn database.DBConnection
}

// NewMigrator creates a Migrator bound to the given connection.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn}
}

func databaseDriver(dbType string, sqlDB *sql.DB) (migratedb.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: migrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	sqlDB, err := m.conn.GetSQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver: %w", err)
	}
	dbDriver, err := databaseDriver(m.conn.Type(), sqlDB)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", sourceDriver, m.conn.Type(), dbDriver)
}

// Up applies all pending migrations. Already-current schemas are a no-op.
func (m *Migrator) Up(ctx context.Context) error {
	logger.Infof("Applying schema migrations (DB: %s, connection: %s)", m.conn.Type(), m.conn.Name())

	inst, err := m.instance()
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := inst.Close(); srcErr != nil || dbErr != nil {
			logger.Warnf("Failed to close migrate instance: source=%v db=%v", srcErr, dbErr)
		}
	}()

	if err := inst.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("schema migration failed (DB: %s): %w", m.conn.Type(), err)
	}
	logger.Infof("Schema migrations are up to date.")
	return nil
}

// Down rolls back all applied migrations. Used by operational tooling only.
func (m *Migrator) Down(ctx context.Context) error {
	inst, err := m.instance()
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		_, _ = inst.Close()
	}()

	if err := inst.Down(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("schema rollback failed (DB: %s): %w", m.conn.Type(), err)
	}
	return nil
}
