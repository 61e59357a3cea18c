package sqldb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
)

// Open returns a pool for a data source. With a connection manager the pool
// is shared and owned by the manager; without one a private pool is opened
// and owned is true.
func Open(ctx context.Context, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID, driverName, dsn, family string) (db *sqlx.DB, owned bool, err error) {
	if connMgr != nil {
		db, err = connMgr.SQLPool(ctx, projectID, datasourceID, driverName, dsn, family)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get pooled connection: %w", err)
		}
		return db, false, nil
	}

	connector, err := datasource.OpenSQLPool(ctx, driverName, dsn, family, datasource.ConnectionManagerConfig{})
	if err != nil {
		return nil, false, err
	}
	db, err = datasource.GetSQLDB(connector)
	if err != nil {
		return nil, false, err
	}
	return db, true, nil
}
