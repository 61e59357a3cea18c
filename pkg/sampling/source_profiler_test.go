package sampling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

const shopDDL = `
	CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL, tier TEXT);
	CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		amount REAL,
		placed_at DATE
	);
	INSERT INTO customers (id, name, tier) VALUES (1, 'Ada', 'gold'), (2, 'Grace', 'gold');
	INSERT INTO orders (id, customer_id, amount, placed_at) VALUES
		(1, 1, 10.0, '2024-01-01'), (2, 2, 20.0, '2024-01-05'), (3, 1, 30.0, '2024-01-11');
`

type fakeRepo struct {
	sources map[uuid.UUID]*models.Datasource
}

func (r *fakeRepo) Get(_ context.Context, _, id uuid.UUID) (*models.Datasource, error) {
	ds, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("datasource %s: %w", id, apperrors.ErrNotFound)
	}
	return ds, nil
}

func newRepo(sources ...*models.Datasource) *fakeRepo {
	r := &fakeRepo{sources: make(map[uuid.UUID]*models.Datasource)}
	for _, ds := range sources {
		r.sources[ds.ID] = ds
	}
	return r
}

func sqliteSource(path string) *models.Datasource {
	return &models.Datasource{
		ID:             uuid.New(),
		Name:           "Shop",
		DatasourceType: "sqlite",
		Config:         map[string]any{"path": path},
	}
}

func testSamplingConfig() config.SamplingConfig {
	return config.DefaultSamplingConfig()
}

func TestSourceProfiler_ProfilesSQLiteSource(t *testing.T) {
	ds := sqliteSource(newSQLiteFile(t, shopDDL))
	p := NewSourceProfiler(newRepo(ds), datasource.NewDatasourceAdapterFactory(nil), testSamplingConfig(), zaptest.NewLogger(t))

	result := p.ProfileSource(context.Background(), uuid.New(), ds.ID, 2, map[string]string{"orders": "Customer Orders"})

	require.True(t, result.Succeeded(), result.ErrorMessage)
	assert.Equal(t, "Shop", result.DataSourceName)
	assert.Equal(t, "sqlite", result.DataSourceType)
	assert.Equal(t, 2, result.TotalTables)
	assert.Equal(t, int64(5), result.TotalRowsEstimated)
	require.Len(t, result.Schemas, 1)
	assert.Equal(t, "main", result.Schemas[0].SchemaName)

	tables := result.Schemas[0].Tables
	require.Len(t, tables, 2)
	customers, orders := tables[0], tables[1]

	assert.Equal(t, "customers", customers.TableName)
	assert.Equal(t, int64(2), customers.RowCount)
	assert.Len(t, customers.SampleRows, 2)
	require.Len(t, customers.ColumnStatistics, 3)
	assert.Equal(t, []models.TopValue{{Value: "gold", Count: 2}}, customers.ColumnStatistics[2].TopValues)

	assert.Equal(t, "Customer Orders", orders.DisplayName)
	assert.Equal(t, int64(3), orders.RowCount)
	assert.LessOrEqual(t, len(orders.SampleRows), 2)
	require.Len(t, orders.ColumnStatistics, 4)
	assert.Equal(t, models.TypeCategoryNumeric, orders.ColumnStatistics[2].Category)
	assert.InDelta(t, 20.0, *orders.ColumnStatistics[2].AvgValue, 1e-9)
	assert.Equal(t, int64(10), *orders.ColumnStatistics[3].DateRangeDays)
	assert.Equal(t, []models.ForeignKey{{
		Column: "customer_id", ReferencedSchema: "main", ReferencedTable: "customers", ReferencedColumn: "id",
	}}, orders.ForeignKeys)
}

func TestSourceProfiler_TableCap(t *testing.T) {
	var ddl strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&ddl, "CREATE TABLE t%03d (id INTEGER); INSERT INTO t%03d VALUES (%d);\n", i, i, i)
	}
	ds := sqliteSource(newSQLiteFile(t, ddl.String()))
	p := NewSourceProfiler(newRepo(ds), datasource.NewDatasourceAdapterFactory(nil), testSamplingConfig(), zaptest.NewLogger(t))

	result := p.ProfileSource(context.Background(), uuid.New(), ds.ID, 5, nil)

	require.True(t, result.Succeeded(), result.ErrorMessage)
	assert.Equal(t, 50, result.TotalTables)
	assert.Equal(t, 50, result.SampledTables())
	assert.Equal(t, "t000", result.Schemas[0].Tables[0].TableName)
	assert.Equal(t, "t049", result.Schemas[0].Tables[49].TableName)
}

func TestSourceProfiler_ConnectionFailures(t *testing.T) {
	missing := sqliteSource("/nonexistent/dir/missing.db")
	unsupported := &models.Datasource{ID: uuid.New(), Name: "Legacy", DatasourceType: "oracle"}
	badConfig := &models.Datasource{ID: uuid.New(), Name: "Broken", DatasourceType: "sqlite", Config: map[string]any{}}
	repo := newRepo(missing, unsupported, badConfig)
	p := NewSourceProfiler(repo, datasource.NewDatasourceAdapterFactory(nil), testSamplingConfig(), zaptest.NewLogger(t))

	tests := []struct {
		name string
		id   uuid.UUID
		want string
	}{
		{"unknown id", uuid.New(), "not found"},
		{"missing file", missing.ID, ""},
		{"unsupported engine", unsupported.ID, "unsupported engine"},
		{"invalid config", badConfig.ID, "path is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.ProfileSource(context.Background(), uuid.New(), tt.id, 10, nil)
			assert.Equal(t, models.ConnectionStatusFailed, result.ConnectionStatus)
			assert.NotEmpty(t, result.ErrorMessage)
			assert.Contains(t, result.ErrorMessage, tt.want)
			assert.NotNil(t, result.Schemas)
			assert.Empty(t, result.Schemas)
			assert.Equal(t, tt.id, result.DataSourceID)
		})
	}
}

func TestSourceProfiler_ErrorMessageIsSanitized(t *testing.T) {
	ds := &models.Datasource{ID: uuid.New(), DatasourceType: "fake"}
	factory := &fakeFactory{
		info:          datasource.DatasourceAdapterInfo{Type: "fake", Family: datasource.FamilySQLite},
		discovererErr: errors.New("dial postgres://admin:s3cret@db:5432/x failed"),
	}
	p := NewSourceProfiler(newRepo(ds), factory, testSamplingConfig(), zaptest.NewLogger(t))

	result := p.ProfileSource(context.Background(), uuid.New(), ds.ID, 10, nil)

	assert.False(t, result.Succeeded())
	assert.NotContains(t, result.ErrorMessage, "s3cret")
}

func TestSourceProfiler_SkipsTablesThatFailToDescribe(t *testing.T) {
	q := newSQLiteExecutor(t, shopDDL)
	ds := &models.Datasource{ID: uuid.New(), Name: "Shop", DatasourceType: "fake"}
	factory := &fakeFactory{
		info: datasource.DatasourceAdapterInfo{Type: "fake", Family: datasource.FamilySQLite},
		discoverer: &fakeDiscoverer{
			tables: []string{"customers", "broken", "orders"},
			columns: map[string][]datasource.ColumnMetadata{
				"customers": {{ColumnName: "id", DataType: "INTEGER"}},
				"orders":    {{ColumnName: "amount", DataType: "REAL"}},
			},
		},
		executor: q,
	}
	p := NewSourceProfiler(newRepo(ds), factory, testSamplingConfig(), zaptest.NewLogger(t))

	result := p.ProfileSource(context.Background(), uuid.New(), ds.ID, 10, nil)

	require.True(t, result.Succeeded())
	assert.Equal(t, 3, result.TotalTables)
	require.Len(t, result.Schemas, 1)
	require.Len(t, result.Schemas[0].Tables, 2)
	assert.Equal(t, "customers", result.Schemas[0].Tables[0].TableName)
	assert.Equal(t, "orders", result.Schemas[0].Tables[1].TableName)
	assert.Equal(t, int64(5), result.TotalRowsEstimated)
	assert.True(t, factory.discoverer.closed)
}

func TestSourceProfiler_CancelledContextSkipsTables(t *testing.T) {
	q := newSQLiteExecutor(t, shopDDL)
	ds := &models.Datasource{ID: uuid.New(), Name: "Shop", DatasourceType: "fake"}
	factory := &fakeFactory{
		info:       datasource.DatasourceAdapterInfo{Type: "fake", Family: datasource.FamilySQLite},
		discoverer: &fakeDiscoverer{tables: []string{"customers", "orders"}},
		executor:   q,
	}
	p := NewSourceProfiler(newRepo(ds), factory, testSamplingConfig(), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	factory.discoverer.onList = cancel

	result := p.ProfileSource(ctx, uuid.New(), ds.ID, 10, nil)

	assert.True(t, result.Succeeded())
	assert.Equal(t, 2, result.TotalTables)
	assert.Equal(t, 0, result.SampledTables())
}

func TestSourceProfiler_IdentifySource(t *testing.T) {
	ds := sqliteSource("/does/not/exist.db")
	p := NewSourceProfiler(newRepo(ds), datasource.NewDatasourceAdapterFactory(nil), testSamplingConfig(), zaptest.NewLogger(t))

	name, dsType, err := p.IdentifySource(context.Background(), uuid.New(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shop", name)
	assert.Equal(t, "sqlite", dsType)

	_, _, err = p.IdentifySource(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSourceProfiler_ResolveSchema(t *testing.T) {
	cfg := testSamplingConfig()
	p := NewSourceProfiler(newRepo(), nil, cfg, nil)
	pg, _ := NewDialect(datasource.FamilyPostgres, 10)
	my, _ := NewDialect(datasource.FamilyMySQL, 10)

	integration := datasource.DatasourceAdapterInfo{Type: "stripe", Family: datasource.FamilyPostgres, Integration: true}
	plain := datasource.DatasourceAdapterInfo{Type: "postgres", Family: datasource.FamilyPostgres}

	declared := &models.Datasource{Config: map[string]any{"schema": "analytics", "database": "shop"}}
	assert.Equal(t, "api_sync", p.resolveSchema(declared, integration, pg))
	assert.Equal(t, "analytics", p.resolveSchema(declared, plain, pg))
	assert.Equal(t, "public", p.resolveSchema(&models.Datasource{}, plain, pg))
	assert.Equal(t, "shop", p.resolveSchema(&models.Datasource{Config: map[string]any{"database": "shop"}}, plain, my))
}

type fakeFactory struct {
	info          datasource.DatasourceAdapterInfo
	discoverer    *fakeDiscoverer
	discovererErr error
	executor      datasource.QueryExecutor
}

func (f *fakeFactory) AdapterInfo(dsType string) (datasource.DatasourceAdapterInfo, error) {
	if dsType != f.info.Type {
		return datasource.DatasourceAdapterInfo{}, apperrors.ErrUnsupportedEngine
	}
	return f.info, nil
}

func (f *fakeFactory) NewSchemaDiscoverer(context.Context, string, map[string]any, uuid.UUID, uuid.UUID) (datasource.SchemaDiscoverer, error) {
	if f.discovererErr != nil {
		return nil, f.discovererErr
	}
	return f.discoverer, nil
}

func (f *fakeFactory) NewQueryExecutor(context.Context, string, map[string]any, uuid.UUID, uuid.UUID) (datasource.QueryExecutor, error) {
	return f.executor, nil
}

func (f *fakeFactory) ListTypes() []datasource.DatasourceAdapterInfo {
	return []datasource.DatasourceAdapterInfo{f.info}
}

type fakeDiscoverer struct {
	tables  []string
	columns map[string][]datasource.ColumnMetadata
	onList  func()
	closed  bool
}

func (d *fakeDiscoverer) DiscoverTables(_ context.Context, schema string) ([]datasource.TableMetadata, error) {
	if d.onList != nil {
		d.onList()
	}
	out := make([]datasource.TableMetadata, len(d.tables))
	for i, name := range d.tables {
		out[i] = datasource.TableMetadata{SchemaName: schema, TableName: name}
	}
	return out, nil
}

func (d *fakeDiscoverer) DiscoverColumns(_ context.Context, _, table string) ([]datasource.ColumnMetadata, error) {
	cols, ok := d.columns[table]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return cols, nil
}

func (d *fakeDiscoverer) DiscoverForeignKeys(context.Context, string, string) ([]datasource.ForeignKeyMetadata, error) {
	return nil, nil
}

func (d *fakeDiscoverer) SupportsForeignKeys() bool { return false }

func (d *fakeDiscoverer) Close() error {
	d.closed = true
	return nil
}
