package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// CreatePostgresPool creates a PostgreSQL connection pool
func CreatePostgresPool(ctx context.Context, connString string, config ConnectionManagerConfig) (PoolConnector, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = config.PoolMaxConns
	poolConfig.MinConns = config.PoolMinConns
	poolConfig.MaxConnIdleTime = time.Duration(config.TTLMinutes) * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return NewPostgresPoolWrapper(pool), nil
}

// GetPostgresPool extracts the underlying *pgxpool.Pool from a PoolConnector.
func GetPostgresPool(connector PoolConnector) (*pgxpool.Pool, error) {
	wrapper, ok := connector.(*PostgresPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a PostgreSQL pool wrapper")
	}
	return wrapper.GetPool(), nil
}

// OpenSQLPool opens and pings a database/sql pool for the named driver.
func OpenSQLPool(ctx context.Context, driverName, dsn, family string, config ConnectionManagerConfig) (PoolConnector, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", family, err)
	}

	if config.PoolMaxConns > 0 {
		db.SetMaxOpenConns(int(config.PoolMaxConns))
	}
	if config.PoolMinConns > 0 {
		db.SetMaxIdleConns(int(config.PoolMinConns))
	}
	if config.TTLMinutes > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.TTLMinutes) * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s: %w", family, err)
	}

	return NewSQLPoolWrapper(db, family), nil
}

// GetSQLDB extracts the underlying *sqlx.DB from a PoolConnector.
func GetSQLDB(connector PoolConnector) (*sqlx.DB, error) {
	wrapper, ok := connector.(*SQLPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a database/sql pool wrapper")
	}
	return wrapper.GetDB(), nil
}
