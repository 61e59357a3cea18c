package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryExecutor_Query(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	exec := &QueryExecutor{db: mock}

	mock.ExpectQuery(`SELECT \* FROM "public"."orders"`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status"}).
			AddRow(int64(1), "paid").
			AddRow(int64(2), nil))

	res, err := exec.Query(context.Background(), `SELECT * FROM "public"."orders" LIMIT $1`, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "status"}, res.ColumnNames())
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(1), res.Rows[0]["id"])
	assert.Equal(t, "paid", res.Rows[0]["status"])
	assert.Nil(t, res.Rows[1]["status"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryExecutor_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	exec := &QueryExecutor{db: mock}
	mock.ExpectQuery("SELECT").WillReturnError(errors.New(`relation "ghost" does not exist`))

	_, err = exec.Query(context.Background(), "SELECT * FROM ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestQueryExecutor_QuoteIdentifier(t *testing.T) {
	exec := &QueryExecutor{}
	assert.Equal(t, `"orders"`, exec.QuoteIdentifier("orders"))
	assert.Equal(t, `"we""ird"`, exec.QuoteIdentifier(`we"ird`))
}

func TestNormalizeValue(t *testing.T) {
	n := pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}
	assert.Equal(t, 12.5, normalizeValue(n))

	assert.Nil(t, normalizeValue(pgtype.Numeric{}))

	id := [16]byte{0x12, 0x34, 0x56, 0x78, 0x12, 0x34, 0x12, 0x34, 0x12, 0x34, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc}
	assert.Equal(t, "12345678-1234-1234-1234-123456789abc", normalizeValue(id))

	assert.Equal(t, "text", normalizeValue("text"))
}

func TestPgTypeNameFromOID(t *testing.T) {
	assert.Equal(t, "INT4", pgTypeNameFromOID(pgtype.Int4OID))
	assert.Equal(t, "NUMERIC", pgTypeNameFromOID(pgtype.NumericOID))
	assert.Equal(t, "UNKNOWN", pgTypeNameFromOID(999999))
}
