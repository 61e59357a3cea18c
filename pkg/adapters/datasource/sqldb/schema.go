package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
)

// Catalog holds the engine-specific catalog queries. Each builder returns a
// statement using "?" placeholders and its arguments.
//
//   - Tables:      one column, table_name
//   - Columns:     column_name, data_type, is_nullable, is_primary_key, ordinal_position
//   - ForeignKeys: source_column, target_schema, target_table, target_column
type Catalog struct {
	Tables      func(schema string) (string, []any)
	Columns     func(schema, table string) (string, []any)
	ForeignKeys func(schema, table string) (string, []any) // nil when unsupported
}

// SchemaDiscoverer discovers schema through a Catalog.
type SchemaDiscoverer struct {
	db      *sqlx.DB
	catalog Catalog
	owned   bool
}

// NewSchemaDiscoverer wraps db. When owned is true Close also closes db.
func NewSchemaDiscoverer(db *sqlx.DB, catalog Catalog, owned bool) *SchemaDiscoverer {
	return &SchemaDiscoverer{db: db, catalog: catalog, owned: owned}
}

type columnRow struct {
	Name       string `db:"column_name"`
	DataType   string `db:"data_type"`
	IsNullable bool   `db:"is_nullable"`
	IsPrimary  bool   `db:"is_primary_key"`
	Ordinal    int    `db:"ordinal_position"`
}

type foreignKeyRow struct {
	SourceColumn string `db:"source_column"`
	TargetSchema string `db:"target_schema"`
	TargetTable  string `db:"target_table"`
	TargetColumn string `db:"target_column"`
}

// DiscoverTables returns the base tables of schemaName.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context, schemaName string) ([]datasource.TableMetadata, error) {
	query, args := d.catalog.Tables(schemaName)

	var names []string
	if err := d.db.SelectContext(ctx, &names, d.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}

	tables := make([]datasource.TableMetadata, len(names))
	for i, n := range names {
		tables[i] = datasource.TableMetadata{SchemaName: schemaName, TableName: n}
	}
	return tables, nil
}

// DiscoverColumns returns columns for a specific table.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnMetadata, error) {
	query, args := d.catalog.Columns(schemaName, tableName)

	var rows []columnRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s.%s has no columns or does not exist", schemaName, tableName)
	}

	columns := make([]datasource.ColumnMetadata, len(rows))
	for i, r := range rows {
		columns[i] = datasource.ColumnMetadata{
			ColumnName:      r.Name,
			DataType:        r.DataType,
			IsNullable:      r.IsNullable,
			IsPrimaryKey:    r.IsPrimary,
			OrdinalPosition: r.Ordinal,
		}
	}
	return columns, nil
}

// DiscoverForeignKeys returns the foreign keys declared on a table.
func (d *SchemaDiscoverer) DiscoverForeignKeys(ctx context.Context, schemaName, tableName string) ([]datasource.ForeignKeyMetadata, error) {
	if d.catalog.ForeignKeys == nil {
		return nil, nil
	}
	query, args := d.catalog.ForeignKeys(schemaName, tableName)

	var rows []foreignKeyRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}

	fks := make([]datasource.ForeignKeyMetadata, len(rows))
	for i, r := range rows {
		fks[i] = datasource.ForeignKeyMetadata(r)
	}
	return fks, nil
}

// SupportsForeignKeys reports whether the catalog has a foreign key query.
func (d *SchemaDiscoverer) SupportsForeignKeys() bool {
	return d.catalog.ForeignKeys != nil
}

// Close releases the discoverer (but NOT the pool if managed).
func (d *SchemaDiscoverer) Close() error {
	if d.owned && d.db != nil {
		return d.db.Close()
	}
	return nil
}

var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
