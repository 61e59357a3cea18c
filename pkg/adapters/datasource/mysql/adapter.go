// Package mysql adapts MySQL and MariaDB databases onto the shared sqldb layer.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

func buildDSN(cfg *Config) string {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", config.ResolveHostForDocker(cfg.Host), cfg.Port)
	dsn.DBName = cfg.Database
	dsn.TLSConfig = cfg.TLS
	dsn.Timeout = cfg.ConnectTimeout
	dsn.ParseTime = true
	return dsn.FormatDSN()
}

func openDB(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqlx.DB, bool, error) {
	return sqldb.Open(ctx, connMgr, projectID, datasourceID, "mysql", buildDSN(cfg), datasource.FamilyMySQL)
}

// NewQueryExecutor creates a MySQL query executor.
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.QueryExecutor, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewQueryExecutor(db, sqldb.QuoteBacktick, owned), nil
}

// NewSchemaDiscoverer creates a MySQL schema discoverer.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.SchemaDiscoverer, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewSchemaDiscoverer(db, Catalog, owned), nil
}
