package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so passwords containing @, /, #
// or ? survive URL parsing. When running in Docker, localhost resolves to
// host.docker.internal.
func buildConnectionString(cfg *Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	host := config.ResolveHostForDocker(cfg.Host)

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		host,
		cfg.Port,
		url.QueryEscape(cfg.Database),
		url.QueryEscape(sslMode),
	)
}

// openPool returns the pool for a data source. With connMgr == nil a
// private pool is created and ownedPool is true.
func openPool(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (pool *pgxpool.Pool, ownedPool bool, err error) {
	connStr := buildConnectionString(cfg)

	if connMgr == nil {
		pool, err = pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, false, fmt.Errorf("connect to postgres: %w", err)
		}
		return pool, true, nil
	}

	pool, err = connMgr.PostgresPool(ctx, projectID, datasourceID, connStr)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get pooled connection: %w", err)
	}
	return pool, false, nil
}
