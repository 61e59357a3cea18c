// Package sqldb implements query execution and schema discovery over
// database/sql for the engines that are not served by pgx.
package sqldb

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
)

// QuoteFunc quotes an identifier for one SQL dialect.
type QuoteFunc func(name string) string

// QuoteDouble quotes with ANSI double quotes (SQLite, DuckDB).
func QuoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBacktick quotes with MySQL backticks.
func QuoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteBracket quotes with SQL Server brackets.
func QuoteBracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QueryExecutor runs queries on a sqlx pool and returns rows as maps.
type QueryExecutor struct {
	db    *sqlx.DB
	quote QuoteFunc
	owned bool // true if the executor opened db itself and must close it
}

// NewQueryExecutor wraps db. When owned is true Close also closes db.
func NewQueryExecutor(db *sqlx.DB, quote QuoteFunc, owned bool) *QueryExecutor {
	return &QueryExecutor{db: db, quote: quote, owned: owned}
}

// Query runs sqlQuery with "?" placeholders, rebound to the driver's bindvar style.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, params ...any) (*datasource.QueryResult, error) {
	rows, err := e.db.QueryxContext(ctx, e.db.Rebind(sqlQuery), params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	columns := make([]datasource.ColumnInfo, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = datasource.ColumnInfo{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		row := make(map[string]any, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		for k, v := range row {
			row[k] = NormalizeValue(v)
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// NormalizeValue turns driver byte slices holding text into strings.
// Non-UTF-8 bytes stay []byte so callers can render them as binary.
func NormalizeValue(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}

// QuoteIdentifier quotes name for the executor's dialect.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return e.quote(name)
}

// DB returns the underlying pool.
func (e *QueryExecutor) DB() *sqlx.DB {
	return e.db
}

// Close releases the executor (but NOT the pool if managed).
func (e *QueryExecutor) Close() error {
	if e.owned && e.db != nil {
		return e.db.Close()
	}
	return nil
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
