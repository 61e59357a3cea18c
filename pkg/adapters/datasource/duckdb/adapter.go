// Package duckdb adapts DuckDB database files and flat data files onto the
// shared sqldb layer.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/marcboeker/go-duckdb"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"
)

// DriverName is the database/sql driver name registered by go-duckdb.
const DriverName = "duckdb"

// open builds a pool whose connections see the file views.
func open(ctx context.Context, cfg *Config, poolCfg datasource.ConnectionManagerConfig) (datasource.PoolConnector, error) {
	stmts := cfg.ViewStatements()
	connector, err := duckdb.NewConnector(cfg.DSN(), func(execer driver.ExecerContext) error {
		for _, stmt := range stmts {
			// Runs for every new pool connection, after the opening request may be gone.
			if _, err := execer.ExecContext(context.Background(), stmt, nil); err != nil {
				return fmt.Errorf("create view: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open duckdb connection: %w", err)
	}

	db := sqlx.NewDb(sql.OpenDB(connector), DriverName)
	if poolCfg.PoolMaxConns > 0 {
		db.SetMaxOpenConns(int(poolCfg.PoolMaxConns))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to duckdb: %w", err)
	}
	return datasource.NewSQLPoolWrapper(db, datasource.FamilyDuckDB), nil
}

func openDB(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqlx.DB, bool, error) {
	if connMgr == nil {
		connector, err := open(ctx, cfg, datasource.ConnectionManagerConfig{})
		if err != nil {
			return nil, false, err
		}
		db, err := datasource.GetSQLDB(connector)
		return db, true, err
	}

	fingerprint := datasource.Fingerprint(fmt.Sprintf("%s|%v", cfg.DSN(), cfg.ViewStatements()))
	connector, err := connMgr.GetOrCreateConnection(ctx, projectID, datasourceID, fingerprint,
		func(ctx context.Context, poolCfg datasource.ConnectionManagerConfig) (datasource.PoolConnector, error) {
			return open(ctx, cfg, poolCfg)
		})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get pooled connection: %w", err)
	}
	db, err := datasource.GetSQLDB(connector)
	return db, false, err
}

// NewQueryExecutor creates a DuckDB query executor.
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.QueryExecutor, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewQueryExecutor(db, sqldb.QuoteDouble, owned), nil
}

// NewSchemaDiscoverer creates a DuckDB schema discoverer.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.SchemaDiscoverer, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewSchemaDiscoverer(db, Catalog, owned), nil
}
