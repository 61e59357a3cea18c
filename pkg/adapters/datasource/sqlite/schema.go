package sqlite

import "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"

// Catalog reads the pragma table-valued functions. The schema argument is the
// attached database name, "main" for the primary file.
var Catalog = sqldb.Catalog{
	Tables: func(schema string) (string, []any) {
		return `
			SELECT name AS table_name
			FROM pragma_table_list
			WHERE schema = ? AND type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`, []any{schema}
	},
	Columns: func(schema, table string) (string, []any) {
		return `
			SELECT
				name AS column_name,
				type AS data_type,
				CASE WHEN "notnull" = 0 AND pk = 0 THEN 1 ELSE 0 END AS is_nullable,
				CASE WHEN pk > 0 THEN 1 ELSE 0 END AS is_primary_key,
				cid + 1 AS ordinal_position
			FROM pragma_table_info(?, ?)
			ORDER BY cid`, []any{table, schema}
	},
	ForeignKeys: func(schema, table string) (string, []any) {
		return `
			SELECT
				"from" AS source_column,
				? AS target_schema,
				"table" AS target_table,
				COALESCE("to", '') AS target_column
			FROM pragma_foreign_key_list(?, ?)
			ORDER BY id, seq`, []any{schema, table, schema}
	},
}
