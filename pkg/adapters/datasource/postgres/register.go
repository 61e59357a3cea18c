package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
)

// IntegrationTypes are API-synced sources whose tables are replicated into a
// Postgres warehouse.
var IntegrationTypes = map[string]string{
	"stripe":           "Stripe",
	"hubspot":          "HubSpot",
	"salesforce":       "Salesforce",
	"shopify":          "Shopify",
	"google_analytics": "Google Analytics",
	"airtable":         "Airtable",
}

func schemaDiscovererFactory(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (datasource.SchemaDiscoverer, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}
	return NewSchemaDiscoverer(ctx, cfg, connMgr, projectID, datasourceID)
}

func queryExecutorFactory(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, projectID, datasourceID uuid.UUID) (datasource.QueryExecutor, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}
	return NewQueryExecutor(ctx, cfg, connMgr, projectID, datasourceID)
}

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
			Family:      datasource.FamilyPostgres,
		},
		SchemaDiscovererFactory: schemaDiscovererFactory,
		QueryExecutorFactory:    queryExecutorFactory,
	})

	for dsType, name := range IntegrationTypes {
		datasource.Register(datasource.DatasourceAdapterRegistration{
			Info: datasource.DatasourceAdapterInfo{
				Type:        dsType,
				DisplayName: name,
				Description: name + " data synced into the warehouse",
				Family:      datasource.FamilyPostgres,
				Integration: true,
			},
			SchemaDiscovererFactory: schemaDiscovererFactory,
			QueryExecutorFactory:    queryExecutorFactory,
		})
	}
}
