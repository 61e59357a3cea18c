package sampling

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"
)

// newSQLiteFile creates a database file from ddl and returns its path.
func newSQLiteFile(t *testing.T, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.db")
	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return path
}

// newSQLiteExecutor opens an executor on a fresh database built from ddl.
func newSQLiteExecutor(t *testing.T, ddl string) *sqldb.QueryExecutor {
	t.Helper()
	db, err := sqlx.Open("sqlite", newSQLiteFile(t, ddl))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqldb.NewQueryExecutor(db, sqldb.QuoteDouble, false)
}

func sqliteDialect(t *testing.T) Dialect {
	t.Helper()
	d, err := NewDialect(datasource.FamilySQLite, 10)
	require.NoError(t, err)
	return d
}

// fakeQueryable returns canned results in order and records the queries.
type fakeQueryable struct {
	results []*datasource.QueryResult
	errs    []error
	queries []string
}

func (f *fakeQueryable) Query(_ context.Context, sqlQuery string, _ ...any) (*datasource.QueryResult, error) {
	i := len(f.queries)
	f.queries = append(f.queries, sqlQuery)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return nil, fmt.Errorf("unexpected query %d: %s", i, sqlQuery)
}

func rowsResult(n int) *datasource.QueryResult {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"id": int64(i + 1)}
	}
	return &datasource.QueryResult{Columns: []datasource.ColumnInfo{{Name: "id"}}, Rows: rows, RowCount: n}
}
