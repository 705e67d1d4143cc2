// Package mysql provides a GORM DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"

	"github.com/pressflow/pacer/pkg/coordinator/adapter/database"
	dbconfig "github.com/pressflow/pacer/pkg/coordinator/adapter/database/config"
	gormadapter "github.com/pressflow/pacer/pkg/coordinator/adapter/database/gorm"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(connectionString(cfg)), nil
	})
}

// connectionString generates the DSN for MySQL connections.
func connectionString(c dbconfig.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// MySQLDBProvider implements database.DBProvider for MySQL connections.
type MySQLDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates a new database.DBProvider for MySQL.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &MySQLDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "mysql")}
}
