package datasource

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

type mockSchemaDiscoverer struct {
	projectID    uuid.UUID
	datasourceID uuid.UUID
	connMgr      *ConnectionManager
}

func (m *mockSchemaDiscoverer) DiscoverTables(ctx context.Context, schemaName string) ([]TableMetadata, error) {
	return []TableMetadata{}, nil
}

func (m *mockSchemaDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error) {
	return []ColumnMetadata{}, nil
}

func (m *mockSchemaDiscoverer) DiscoverForeignKeys(ctx context.Context, schemaName, tableName string) ([]ForeignKeyMetadata, error) {
	return nil, nil
}

func (m *mockSchemaDiscoverer) SupportsForeignKeys() bool { return true }

func (m *mockSchemaDiscoverer) Close() error { return nil }

type mockQueryExecutor struct {
	config  map[string]any
	connMgr *ConnectionManager
}

func (m *mockQueryExecutor) Query(ctx context.Context, sqlQuery string, params ...any) (*QueryResult, error) {
	return &QueryResult{}, nil
}

func (m *mockQueryExecutor) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (m *mockQueryExecutor) Close() error { return nil }

func registerMock(t *testing.T, dsType string) {
	t.Helper()
	Register(DatasourceAdapterRegistration{
		Info: DatasourceAdapterInfo{Type: dsType, DisplayName: "Mock"},
		SchemaDiscovererFactory: func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, projectID, datasourceID uuid.UUID) (SchemaDiscoverer, error) {
			return &mockSchemaDiscoverer{projectID: projectID, datasourceID: datasourceID, connMgr: connMgr}, nil
		},
		QueryExecutorFactory: func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, projectID, datasourceID uuid.UUID) (QueryExecutor, error) {
			return &mockQueryExecutor{config: config, connMgr: connMgr}, nil
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, dsType)
		registryMu.Unlock()
	})
}

func TestFactoryPassesConnectionManagerAndIdentity(t *testing.T) {
	registerMock(t, "mock_identity")

	cm := NewConnectionManager(ConnectionManagerConfig{}, zaptest.NewLogger(t))
	defer cm.Close()
	factory := NewDatasourceAdapterFactory(cm)

	projectID, dsID := uuid.New(), uuid.New()
	disc, err := factory.NewSchemaDiscoverer(context.Background(), "mock_identity", nil, projectID, dsID)
	require.NoError(t, err)

	mock := disc.(*mockSchemaDiscoverer)
	assert.Same(t, cm, mock.connMgr)
	assert.Equal(t, projectID, mock.projectID)
	assert.Equal(t, dsID, mock.datasourceID)

	exec, err := factory.NewQueryExecutor(context.Background(), "mock_identity", map[string]any{"k": "v"}, projectID, dsID)
	require.NoError(t, err)
	assert.Equal(t, "v", exec.(*mockQueryExecutor).config["k"])
}

func TestFactoryUnsupportedType(t *testing.T) {
	factory := NewDatasourceAdapterFactory(nil)

	_, err := factory.NewSchemaDiscoverer(context.Background(), "oracle", nil, uuid.New(), uuid.New())
	require.ErrorIs(t, err, apperrors.ErrUnsupportedEngine)

	_, err = factory.NewQueryExecutor(context.Background(), "oracle", nil, uuid.New(), uuid.New())
	require.ErrorIs(t, err, apperrors.ErrUnsupportedEngine)

	_, err = factory.AdapterInfo("oracle")
	require.ErrorIs(t, err, apperrors.ErrUnsupportedEngine)
}

func TestFactoryAdapterInfoDefaultsFamily(t *testing.T) {
	registerMock(t, "mock_family")

	info, err := NewDatasourceAdapterFactory(nil).AdapterInfo("mock_family")
	require.NoError(t, err)
	assert.Equal(t, "mock_family", info.Family)
	assert.False(t, info.Integration)
}

func TestFactoryListTypesSorted(t *testing.T) {
	registerMock(t, "mock_b")
	registerMock(t, "mock_a")

	types := NewDatasourceAdapterFactory(nil).ListTypes()
	var names []string
	for _, ti := range types {
		names = append(names, ti.Type)
	}
	assert.Contains(t, names, "mock_a")
	assert.Contains(t, names, "mock_b")
	assert.IsNonDecreasing(t, names)
}

func TestFactoryNilConnectionManager(t *testing.T) {
	registerMock(t, "mock_nil")

	disc, err := NewDatasourceAdapterFactory(nil).NewSchemaDiscoverer(context.Background(), "mock_nil", nil, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, disc.(*mockSchemaDiscoverer).connMgr)
}
