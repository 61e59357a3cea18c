package datasource

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

// DatasourceAdapterFactory creates adapters from the registry.
type DatasourceAdapterFactory interface {
	// AdapterInfo returns the registration info for a data source type.
	// Unknown types return an error wrapping apperrors.ErrUnsupportedEngine.
	AdapterInfo(dsType string) (DatasourceAdapterInfo, error)

	// NewSchemaDiscoverer creates a schema discoverer for the given data source type.
	NewSchemaDiscoverer(ctx context.Context, dsType string, config map[string]any, projectID, datasourceID uuid.UUID) (SchemaDiscoverer, error)

	// NewQueryExecutor creates a query executor for the given data source type.
	NewQueryExecutor(ctx context.Context, dsType string, config map[string]any, projectID, datasourceID uuid.UUID) (QueryExecutor, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []DatasourceAdapterInfo
}

type registryFactory struct {
	connMgr *ConnectionManager
}

// NewDatasourceAdapterFactory returns a factory that uses the global registry.
// A nil connMgr makes every adapter open and own its connection.
func NewDatasourceAdapterFactory(connMgr *ConnectionManager) DatasourceAdapterFactory {
	return &registryFactory{
		connMgr: connMgr,
	}
}

func (f *registryFactory) AdapterInfo(dsType string) (DatasourceAdapterInfo, error) {
	reg, ok := Lookup(dsType)
	if !ok {
		return DatasourceAdapterInfo{}, fmt.Errorf("%w: %s (not compiled in)", apperrors.ErrUnsupportedEngine, dsType)
	}
	return reg.Info, nil
}

func (f *registryFactory) NewSchemaDiscoverer(ctx context.Context, dsType string, config map[string]any, projectID, datasourceID uuid.UUID) (SchemaDiscoverer, error) {
	reg, ok := Lookup(dsType)
	if !ok || reg.SchemaDiscovererFactory == nil {
		return nil, fmt.Errorf("%w: schema discovery not supported for type %s", apperrors.ErrUnsupportedEngine, dsType)
	}
	return reg.SchemaDiscovererFactory(ctx, config, f.connMgr, projectID, datasourceID)
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, dsType string, config map[string]any, projectID, datasourceID uuid.UUID) (QueryExecutor, error) {
	reg, ok := Lookup(dsType)
	if !ok || reg.QueryExecutorFactory == nil {
		return nil, fmt.Errorf("%w: query execution not supported for type %s", apperrors.ErrUnsupportedEngine, dsType)
	}
	return reg.QueryExecutorFactory(ctx, config, f.connMgr, projectID, datasourceID)
}

func (f *registryFactory) ListTypes() []DatasourceAdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*registryFactory)(nil)
