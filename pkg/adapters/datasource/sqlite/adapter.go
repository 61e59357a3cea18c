// Package sqlite adapts SQLite database files onto the shared sqldb layer.
package sqlite

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

func openDB(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqlx.DB, bool, error) {
	return sqldb.Open(ctx, connMgr, projectID, datasourceID, DriverName, cfg.DSN(), datasource.FamilySQLite)
}

// NewQueryExecutor creates a SQLite query executor.
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.QueryExecutor, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewQueryExecutor(db, sqldb.QuoteDouble, owned), nil
}

// NewSchemaDiscoverer creates a SQLite schema discoverer.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.SchemaDiscoverer, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewSchemaDiscoverer(db, Catalog, owned), nil
}
