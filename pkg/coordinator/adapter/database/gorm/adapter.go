package gorm

import (
	"database/sql"

	"github.com/pressflow/pacer/pkg/coordinator/adapter/database"
	dbconfig "github.com/pressflow/pacer/pkg/coordinator/adapter/database/config"

	"gorm.io/gorm"
)

// GormDBAdapter wraps a *gorm.DB as a database.DBConnection.
type GormDBAdapter struct {
	db   *gorm.DB
	cfg  dbconfig.DatabaseConfig
	name string
}

// NewGormDBAdapter creates a new GormDBAdapter.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	return &GormDBAdapter{db: db, cfg: cfg, name: name}
}

// DB returns the underlying GORM handle.
func (a *GormDBAdapter) DB() *gorm.DB {
	return a.db
}

// GetSQLDB returns the underlying *sql.DB connection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	return a.db.DB()
}

// Close closes the database connection.
func (a *GormDBAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Type returns the database type.
func (a *GormDBAdapter) Type() string {
	return a.cfg.Type
}

// Name returns the connection name.
func (a *GormDBAdapter) Name() string {
	return a.name
}

// Config returns the database configuration for this connection.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// SupportsSkipLocked reports whether the dialect understands
// FOR UPDATE SKIP LOCKED. SQLite serializes writers instead, so the claim
// path falls back to optimistic version checks there.
func (a *GormDBAdapter) SupportsSkipLocked() bool {
	return a.cfg.Type == "postgres" || a.cfg.Type == "mysql"
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
