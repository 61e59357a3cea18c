package sampling

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
)

func TestTableSampler_RandomOrder(t *testing.T) {
	q := newSQLiteExecutor(t, `
		CREATE TABLE t (id INTEGER PRIMARY KEY);
		WITH RECURSIVE seq(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM seq WHERE n < 50)
		INSERT INTO t (id) SELECT n FROM seq;
	`)
	s := NewTableSampler(zaptest.NewLogger(t))

	rows := s.Sample(context.Background(), q, sqliteDialect(t), TableRef{Schema: "main", Table: "t"}, 10)
	assert.Len(t, rows, 10)

	rows = s.Sample(context.Background(), q, sqliteDialect(t), TableRef{Schema: "main", Table: "t"}, 100)
	assert.Len(t, rows, 50)
}

func TestTableSampler_MissingTable(t *testing.T) {
	q := newSQLiteExecutor(t, `CREATE TABLE t (id INTEGER);`)
	s := NewTableSampler(zaptest.NewLogger(t))

	rows := s.Sample(context.Background(), q, sqliteDialect(t), TableRef{Schema: "main", Table: "ghost"}, 10)
	require.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestTableSampler_FallsBackWhenPageSampleIsEmpty(t *testing.T) {
	q := &fakeQueryable{results: []*datasource.QueryResult{rowsResult(0), rowsResult(3)}}
	d, err := NewDialect(datasource.FamilyPostgres, 10)
	require.NoError(t, err)

	rows := NewTableSampler(zaptest.NewLogger(t)).Sample(context.Background(), q, d, TableRef{Schema: "public", Table: "tiny"}, 5)

	assert.Len(t, rows, 3)
	require.Len(t, q.queries, 2)
	assert.Contains(t, q.queries[0], "TABLESAMPLE SYSTEM")
	assert.Contains(t, q.queries[1], "ORDER BY RANDOM()")
}

func TestTableSampler_NoFallbackForRandomOrderEngines(t *testing.T) {
	q := &fakeQueryable{results: []*datasource.QueryResult{rowsResult(0)}}

	rows := NewTableSampler(nil).Sample(context.Background(), q, sqliteDialect(t), TableRef{Table: "empty"}, 5)

	assert.Empty(t, rows)
	assert.Len(t, q.queries, 1)
}

func TestTableSampler_ClipsToMaxRows(t *testing.T) {
	q := &fakeQueryable{results: []*datasource.QueryResult{rowsResult(25)}}

	rows := NewTableSampler(nil).Sample(context.Background(), q, sqliteDialect(t), TableRef{Table: "t"}, 7)

	assert.Len(t, rows, 7)
}

func TestTableSampler_QueryError(t *testing.T) {
	q := &fakeQueryable{errs: []error{errors.New("boom")}}

	rows := NewTableSampler(nil).Sample(context.Background(), q, sqliteDialect(t), TableRef{Table: "t"}, 7)

	require.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestTableSampler_NonPositiveMaxRows(t *testing.T) {
	q := &fakeQueryable{}

	rows := NewTableSampler(nil).Sample(context.Background(), q, sqliteDialect(t), TableRef{Table: "t"}, 0)

	assert.Empty(t, rows)
	assert.Empty(t, q.queries)
}
