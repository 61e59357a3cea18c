package datasource

import "context"

// PoolConnector abstracts connection pool operations across engines
// (pgxpool for Postgres, database/sql for everything else).
type PoolConnector interface {
	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes all connections in the pool
	Close() error

	// GetType returns the engine family for logging/stats
	GetType() string
}
