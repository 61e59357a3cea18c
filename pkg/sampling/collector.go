package sampling

import (
	"context"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// DiscovererCollector adapts a datasource.SchemaDiscoverer to SchemaCollector.
type DiscovererCollector struct {
	discoverer datasource.SchemaDiscoverer
}

// NewDiscovererCollector wraps d. The caller keeps ownership of d.
func NewDiscovererCollector(d datasource.SchemaDiscoverer) *DiscovererCollector {
	return &DiscovererCollector{discoverer: d}
}

func (c *DiscovererCollector) ListTables(ctx context.Context, schema string) ([]TableInfo, error) {
	tables, err := c.discoverer.DiscoverTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	result := make([]TableInfo, len(tables))
	for i, t := range tables {
		result[i] = TableInfo{Schema: t.SchemaName, Name: t.TableName}
	}
	return result, nil
}

func (c *DiscovererCollector) DescribeTable(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	columns, err := c.discoverer.DiscoverColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	result := make([]ColumnInfo, len(columns))
	for i, col := range columns {
		result[i] = ColumnInfo{Name: col.ColumnName, DataType: col.DataType}
	}
	return result, nil
}

// ForeignKeys returns nil without error when the engine has no FK discovery.
func (c *DiscovererCollector) ForeignKeys(ctx context.Context, schema, table string) ([]models.ForeignKey, error) {
	if !c.discoverer.SupportsForeignKeys() {
		return nil, nil
	}
	fks, err := c.discoverer.DiscoverForeignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	result := make([]models.ForeignKey, len(fks))
	for i, fk := range fks {
		result[i] = models.ForeignKey{
			Column:           fk.SourceColumn,
			ReferencedSchema: fk.TargetSchema,
			ReferencedTable:  fk.TargetTable,
			ReferencedColumn: fk.TargetColumn,
		}
	}
	return result, nil
}

var (
	_ SchemaCollector     = (*DiscovererCollector)(nil)
	_ ForeignKeyCollector = (*DiscovererCollector)(nil)
)
