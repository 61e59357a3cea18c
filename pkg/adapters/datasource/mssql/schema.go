package mssql

import "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"

// Catalog reads SQL Server system views. Placeholders are rebound to @pN by sqlx.
var Catalog = sqldb.Catalog{
	Tables: func(schema string) (string, []any) {
		return `
			SELECT t.name AS table_name
			FROM sys.tables t
			WHERE t.is_ms_shipped = 0
			  AND SCHEMA_NAME(t.schema_id) = ?
			ORDER BY t.name`, []any{schema}
	},
	Columns: func(schema, table string) (string, []any) {
		return `
			SELECT
				c.name AS column_name,
				TYPE_NAME(c.user_type_id) AS data_type,
				CAST(c.is_nullable AS INT) AS is_nullable,
				CASE WHEN EXISTS (
					SELECT 1
					FROM sys.index_columns ic
					JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
					WHERE i.is_primary_key = 1
					  AND ic.object_id = c.object_id
					  AND ic.column_id = c.column_id
				) THEN 1 ELSE 0 END AS is_primary_key,
				c.column_id AS ordinal_position
			FROM sys.columns c
			JOIN sys.tables t ON t.object_id = c.object_id
			WHERE SCHEMA_NAME(t.schema_id) = ? AND t.name = ?
			ORDER BY c.column_id`, []any{schema, table}
	},
	ForeignKeys: func(schema, table string) (string, []any) {
		return `
			SELECT
				pc.name AS source_column,
				SCHEMA_NAME(rt.schema_id) AS target_schema,
				rt.name AS target_table,
				rc.name AS target_column
			FROM sys.foreign_key_columns fkc
			JOIN sys.tables pt ON pt.object_id = fkc.parent_object_id
			JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
			JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
			JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
			WHERE SCHEMA_NAME(pt.schema_id) = ? AND pt.name = ?
			ORDER BY fkc.constraint_column_id`, []any{schema, table}
	},
}
