package datasource

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Engine families. A family selects the SQL dialect used for sampling.
const (
	FamilyPostgres = "postgres"
	FamilyMSSQL    = "mssql"
	FamilyMySQL    = "mysql"
	FamilySQLite   = "sqlite"
	FamilyDuckDB   = "duckdb"
)

// DatasourceAdapterInfo describes a registered adapter.
type DatasourceAdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "mysql", "stripe"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Stripe"
	Description string `json:"description"`
	Family      string `json:"family"` // engine family the type is queried with

	// Integration marks API-synced types whose tables live in the platform
	// warehouse under a fixed schema rather than in the customer's database.
	Integration bool `json:"integration"`
}

// SchemaDiscovererFactoryFunc opens a schema discoverer for a data source config.
type SchemaDiscovererFactoryFunc func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, projectID, datasourceID uuid.UUID) (SchemaDiscoverer, error)

// QueryExecutorFactoryFunc opens a query executor for a data source config.
type QueryExecutorFactoryFunc func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, projectID, datasourceID uuid.UUID) (QueryExecutor, error)

// DatasourceAdapterRegistration contains info + factories for creating adapters.
type DatasourceAdapterRegistration struct {
	Info                    DatasourceAdapterInfo
	SchemaDiscovererFactory SchemaDiscovererFactoryFunc
	QueryExecutorFactory    QueryExecutorFactoryFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DatasourceAdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DatasourceAdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if reg.Info.Family == "" {
		reg.Info.Family = reg.Info.Type
	}
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []DatasourceAdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasourceAdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// Lookup returns the registration for a data source type.
func Lookup(dsType string) (DatasourceAdapterRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[dsType]
	return reg, ok
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	_, ok := Lookup(dsType)
	return ok
}
