// Package sampling profiles data sources: it samples rows from each table and
// computes per-column statistics through an engine-specific Dialect.
package sampling

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// TableRef names one table of a data source.
type TableRef struct {
	Schema string
	Table  string
}

// TableInfo is a table reported by a SchemaCollector.
type TableInfo struct {
	Schema string
	Name   string
}

// ColumnInfo is a column reported by a SchemaCollector.
type ColumnInfo struct {
	Name     string
	DataType string
}

// SchemaCollector lists the logical tables of a source and their columns.
type SchemaCollector interface {
	ListTables(ctx context.Context, schema string) ([]TableInfo, error)
	DescribeTable(ctx context.Context, schema, table string) ([]ColumnInfo, error)
}

// ForeignKeyCollector is implemented by collectors that can report foreign keys.
type ForeignKeyCollector interface {
	ForeignKeys(ctx context.Context, schema, table string) ([]models.ForeignKey, error)
}

// Queryable runs a read-only statement.
type Queryable interface {
	Query(ctx context.Context, sqlQuery string, params ...any) (*datasource.QueryResult, error)
}

// DataSourceRepository resolves data source ids to their stored definition
// with decrypted config.
type DataSourceRepository interface {
	Get(ctx context.Context, projectID, id uuid.UUID) (*models.Datasource, error)
}
