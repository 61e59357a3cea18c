package sqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestQueryExecutor_Query(t *testing.T) {
	db, mock := newMockDB(t)
	exec := NewQueryExecutor(db, QuoteDouble, false)

	mock.ExpectQuery(`SELECT id, name, payload FROM "t" LIMIT \?`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "payload"}).
			AddRow(int64(1), []byte("alice"), []byte{0xff, 0xfe}).
			AddRow(int64(2), "bob", nil))

	res, err := exec.Query(context.Background(), `SELECT id, name, payload FROM "t" LIMIT ?`, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "payload"}, res.ColumnNames())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, int64(1), res.Rows[0]["id"])
	assert.Equal(t, "alice", res.Rows[0]["name"], "valid UTF-8 bytes become strings")
	assert.Equal(t, []byte{0xff, 0xfe}, res.Rows[0]["payload"], "binary stays bytes")
	assert.Nil(t, res.Rows[1]["payload"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryExecutor_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	exec := NewQueryExecutor(db, QuoteDouble, false)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("no such table: missing"))

	_, err := exec.Query(context.Background(), "SELECT * FROM missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestQueryExecutor_EmptyResultIsNotNil(t *testing.T) {
	db, mock := newMockDB(t)
	exec := NewQueryExecutor(db, QuoteDouble, false)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a"}))

	res, err := exec.Query(context.Background(), "SELECT a FROM t")
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestQueryExecutor_CloseOwnership(t *testing.T) {
	db, mock := newMockDB(t)
	require.NoError(t, NewQueryExecutor(db, QuoteDouble, false).Close())

	mock.ExpectClose()
	require.NoError(t, NewQueryExecutor(db, QuoteDouble, true).Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteFuncs(t *testing.T) {
	assert.Equal(t, `"weird""name"`, QuoteDouble(`weird"name`))
	assert.Equal(t, "`a``b`", QuoteBacktick("a`b"))
	assert.Equal(t, "[a]]b]", QuoteBracket("a]b"))
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "x", NormalizeValue([]byte("x")))
	assert.Equal(t, []byte{0xc3}, NormalizeValue([]byte{0xc3}))
	assert.Equal(t, 3.5, NormalizeValue(3.5))
	assert.Nil(t, NormalizeValue(nil))
}
