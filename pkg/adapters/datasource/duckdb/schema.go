package duckdb

import "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"

// Catalog reads information_schema. Views are listed because file sources
// are exposed as views. Foreign keys are not discovered.
var Catalog = sqldb.Catalog{
	Tables: func(schema string) (string, []any) {
		return `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = ? AND table_type IN ('BASE TABLE', 'VIEW')
			ORDER BY table_name`, []any{schema}
	},
	Columns: func(schema, table string) (string, []any) {
		return `
			SELECT
				c.column_name,
				c.data_type,
				CASE WHEN c.is_nullable = 'YES' THEN 1 ELSE 0 END AS is_nullable,
				CASE WHEN EXISTS (
					SELECT 1 FROM duckdb_constraints() k
					WHERE k.schema_name = c.table_schema
					  AND k.table_name = c.table_name
					  AND k.constraint_type = 'PRIMARY KEY'
					  AND list_contains(k.constraint_column_names, c.column_name)
				) THEN 1 ELSE 0 END AS is_primary_key,
				CAST(c.ordinal_position AS INTEGER) AS ordinal_position
			FROM information_schema.columns c
			WHERE c.table_schema = ? AND c.table_name = ?
			ORDER BY c.ordinal_position`, []any{schema, table}
	},
}
