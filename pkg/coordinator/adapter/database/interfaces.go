package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/pressflow/pacer/pkg/coordinator/adapter/database/config"

	"gorm.io/gorm"
)

// DBConnection represents an abstraction of a named database connection.
type DBConnection interface {
	// Close closes the database connection.
	Close() error
	// Type returns the database type (e.g., "postgres", "sqlite").
	Type() string
	// Name returns the connection name (e.g., "metadata").
	Name() string
	// DB returns the underlying GORM handle.
	DB() *gorm.DB
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// SupportsSkipLocked reports whether the dialect supports
	// SELECT ... FOR UPDATE SKIP LOCKED.
	SupportsSkipLocked() bool
}

// DBProvider is an interface responsible for providing database connections
// of one type based on configuration.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider.
	Type() string
}

// DBConnectionResolver resolves the required database connection instance by name.
type DBConnectionResolver interface {
	// ResolveDBConnection resolves a database connection instance by name.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
	// CloseAll closes every connection held by the underlying providers.
	CloseAll() error
}

// DBProviderGroup is an Fx tag used to group all DBProvider implementations.
const DBProviderGroup = `db_providers`
