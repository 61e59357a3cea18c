package datasource

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// PostgresPoolWrapper wraps *pgxpool.Pool to implement PoolConnector
type PostgresPoolWrapper struct {
	pool *pgxpool.Pool
}

// NewPostgresPoolWrapper creates a new PostgreSQL pool wrapper
func NewPostgresPoolWrapper(pool *pgxpool.Pool) *PostgresPoolWrapper {
	return &PostgresPoolWrapper{pool: pool}
}

func (w *PostgresPoolWrapper) Ping(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

func (w *PostgresPoolWrapper) Close() error {
	w.pool.Close()
	return nil
}

func (w *PostgresPoolWrapper) GetType() string {
	return FamilyPostgres
}

// GetPool returns the underlying *pgxpool.Pool
func (w *PostgresPoolWrapper) GetPool() *pgxpool.Pool {
	return w.pool
}

// SQLPoolWrapper wraps a database/sql pool (through sqlx) to implement PoolConnector.
// Used by SQL Server, MySQL, SQLite and DuckDB.
type SQLPoolWrapper struct {
	db     *sqlx.DB
	family string
}

// NewSQLPoolWrapper creates a new database/sql pool wrapper
func NewSQLPoolWrapper(db *sqlx.DB, family string) *SQLPoolWrapper {
	return &SQLPoolWrapper{db: db, family: family}
}

func (w *SQLPoolWrapper) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *SQLPoolWrapper) Close() error {
	return w.db.Close()
}

func (w *SQLPoolWrapper) GetType() string {
	return w.family
}

// GetDB returns the underlying *sqlx.DB
func (w *SQLPoolWrapper) GetDB() *sqlx.DB {
	return w.db
}
