package mssql

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// buildDSN returns the driver name and connection URL for the configured auth method.
func buildDSN(cfg *Config) (driverName, dsn string) {
	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", cfg.ConnectionTimeout))
	}

	host := fmt.Sprintf("%s:%d", config.ResolveHostForDocker(cfg.Host), cfg.Port)
	u := &url.URL{Scheme: "sqlserver", Host: host}
	driverName = "sqlserver"

	switch cfg.AuthMethod {
	case AuthServicePrincipal:
		// azuresql driver handles the client-credentials flow
		driverName = "azuresql"
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", cfg.ClientID)
		query.Add("password", cfg.ClientSecret)
		query.Add("tenant id", cfg.TenantID)
	case AuthAccessToken:
		query.Add("fedauth", "ActiveDirectoryAccessToken")
		query.Add("password", cfg.AzureAccessToken)
	default:
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	u.RawQuery = query.Encode()
	return driverName, u.String()
}

func openDB(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqlx.DB, bool, error) {
	driverName, dsn := buildDSN(cfg)
	return sqldb.Open(ctx, connMgr, projectID, datasourceID, driverName, dsn, datasource.FamilyMSSQL)
}

// NewQueryExecutor creates a SQL Server query executor.
// If connMgr is nil, the executor owns a private pool.
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.QueryExecutor, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewQueryExecutor(db, sqldb.QuoteBracket, owned), nil
}

// NewSchemaDiscoverer creates a SQL Server schema discoverer.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (*sqldb.SchemaDiscoverer, error) {
	db, owned, err := openDB(ctx, cfg, connMgr, projectID, datasourceID)
	if err != nil {
		return nil, err
	}
	return sqldb.NewSchemaDiscoverer(db, Catalog, owned), nil
}
