package datasource

import "context"

// SchemaDiscoverer lists tables, columns and foreign keys of one data source.
// Each implementation borrows its connection and must be closed when done.
type SchemaDiscoverer interface {
	// DiscoverTables returns the base tables of a schema, ordered by name.
	DiscoverTables(ctx context.Context, schemaName string) ([]TableMetadata, error)

	// DiscoverColumns returns columns for a specific table in ordinal order.
	DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error)

	// DiscoverForeignKeys returns the foreign keys declared on a table.
	DiscoverForeignKeys(ctx context.Context, schemaName, tableName string) ([]ForeignKeyMetadata, error)

	// SupportsForeignKeys returns true if the database supports FK discovery.
	SupportsForeignKeys() bool

	// Close releases the discoverer (not a pooled connection).
	Close() error
}

// QueryExecutor runs read-only statements against a data source.
// Parameters use "?" placeholders on database/sql engines and $n on Postgres.
type QueryExecutor interface {
	// Query runs a statement and returns all rows as column-name maps.
	Query(ctx context.Context, sqlQuery string, params ...any) (*QueryResult, error)

	// QuoteIdentifier quotes a table, column or schema name for the engine's dialect.
	QuoteIdentifier(name string) string

	// Close releases the executor (not a pooled connection).
	Close() error
}

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "TEXT", "INT4", "VARCHAR")
}

// QueryResult holds the results from executing a query.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ColumnNames returns the result column names in select order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}
