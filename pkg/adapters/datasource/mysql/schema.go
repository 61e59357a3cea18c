package mysql

import "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"

// Catalog reads information_schema. In MySQL a schema is a database.
var Catalog = sqldb.Catalog{
	Tables: func(schema string) (string, []any) {
		return `
			SELECT TABLE_NAME AS table_name
			FROM information_schema.TABLES
			WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = ?
			ORDER BY TABLE_NAME`, []any{schema}
	},
	Columns: func(schema, table string) (string, []any) {
		return `
			SELECT
				COLUMN_NAME AS column_name,
				DATA_TYPE AS data_type,
				IF(IS_NULLABLE = 'YES', 1, 0) AS is_nullable,
				IF(COLUMN_KEY = 'PRI', 1, 0) AS is_primary_key,
				ORDINAL_POSITION AS ordinal_position
			FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`, []any{schema, table}
	},
	ForeignKeys: func(schema, table string) (string, []any) {
		return `
			SELECT
				COLUMN_NAME AS source_column,
				REFERENCED_TABLE_SCHEMA AS target_schema,
				REFERENCED_TABLE_NAME AS target_table,
				REFERENCED_COLUMN_NAME AS target_column
			FROM information_schema.KEY_COLUMN_USAGE
			WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
			  AND REFERENCED_TABLE_NAME IS NOT NULL
			ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`, []any{schema, table}
	},
}
