package sampling

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/sqldb"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// Result column aliases produced by StatQuery and TopValuesQuery.
const (
	colRowCount      = "row_count"
	colDistinctCount = "distinct_count"
	colNullCount     = "null_count"
	colMinValue      = "min_value"
	colMaxValue      = "max_value"
	colAvgValue      = "avg_value"
	colStddevValue   = "stddev_value"
	colVarianceValue = "variance_value"
	colMinLength     = "min_length"
	colMaxLength     = "max_length"
	colAvgLength     = "avg_length"
	colDateRangeDays = "date_range_days"
	colTopValue      = "top_value"
	colTopCount      = "top_count"
)

// Dialect builds the SQL text for one engine family. Statements carry no
// parameters; identifiers are quoted by the dialect.
type Dialect interface {
	Family() string
	// DefaultSchema is used when a source declares no schema. Empty means the
	// schema is the source's database name.
	DefaultSchema() string
	QuoteIdentifier(name string) string
	QualifiedTable(ref TableRef) string
	SampleQuery(ref TableRef, maxRows int) string
	// FallbackSampleQuery is tried when SampleQuery returns no rows. Empty when
	// SampleQuery already samples exactly.
	FallbackSampleQuery(ref TableRef, maxRows int) string
	StatQuery(ref TableRef, column string, category models.TypeCategory) string
	TopValuesQuery(ref TableRef, column string, limit int) string
}

// sqlDialect is a Dialect described by its engine-specific fragments.
type sqlDialect struct {
	family        string
	defaultSchema string
	quote         func(string) string

	// pageSample returns the FROM clause suffix for page sampling, or "" when
	// the engine samples by random order.
	pageSample func(percent string) string
	random     string
	top        bool // row limit is SELECT TOP (n) rather than LIMIT n

	toFloat func(expr string) string
	toText  func(expr string) string
	length  func(expr string) string
	stddev  func(expr string) string // nil: variance is returned and the root taken in Go
	daySpan func(minExpr, maxExpr string) string
	percent string

	// asComparable wraps a column whose type has no equality operator (json,
	// xml, geometric types, legacy LOBs) so it can be counted distinct.
	asComparable func(expr string) string
	// stringsAsLOB marks engines whose legacy string types (text, ntext)
	// reject DISTINCT, so strings go through asComparable too.
	stringsAsLOB bool
}

func (d *sqlDialect) Family() string        { return d.family }
func (d *sqlDialect) DefaultSchema() string { return d.defaultSchema }

func (d *sqlDialect) QuoteIdentifier(name string) string {
	return d.quote(name)
}

func (d *sqlDialect) QualifiedTable(ref TableRef) string {
	if ref.Schema == "" {
		return d.quote(ref.Table)
	}
	return d.quote(ref.Schema) + "." + d.quote(ref.Table)
}

// selectLimited wraps "SELECT <cols> FROM <from> <tail>" with the engine's row limit.
func (d *sqlDialect) selectLimited(cols, from, tail string, n int) string {
	if d.top {
		return strings.TrimSpace(fmt.Sprintf("SELECT TOP (%d) %s FROM %s %s", n, cols, from, tail))
	}
	return strings.TrimSpace(fmt.Sprintf("SELECT %s FROM %s %s", cols, from, tail)) + fmt.Sprintf(" LIMIT %d", n)
}

func (d *sqlDialect) randomOrder(ref TableRef, maxRows int) string {
	return d.selectLimited("*", d.QualifiedTable(ref), "ORDER BY "+d.random, maxRows)
}

func (d *sqlDialect) SampleQuery(ref TableRef, maxRows int) string {
	if d.pageSample == nil {
		return d.randomOrder(ref, maxRows)
	}
	return d.selectLimited("*", d.QualifiedTable(ref)+" "+d.pageSample(d.percent), "", maxRows)
}

func (d *sqlDialect) FallbackSampleQuery(ref TableRef, maxRows int) string {
	if d.pageSample == nil {
		return ""
	}
	return d.randomOrder(ref, maxRows)
}

// distinctExpr is the expression counted by COUNT(DISTINCT ...).
func (d *sqlDialect) distinctExpr(col string, category models.TypeCategory) string {
	if category == models.TypeCategoryOther || (category == models.TypeCategoryString && d.stringsAsLOB) {
		return d.asComparable(col)
	}
	return col
}

func (d *sqlDialect) StatQuery(ref TableRef, column string, category models.TypeCategory) string {
	col := d.quote(column)
	parts := []string{
		"COUNT(*) AS " + colRowCount,
		fmt.Sprintf("COUNT(DISTINCT %s) AS %s", d.distinctExpr(col, category), colDistinctCount),
		fmt.Sprintf("COUNT(*) - COUNT(%s) AS %s", col, colNullCount),
	}

	switch category {
	case models.TypeCategoryNumeric:
		f := d.toFloat(col)
		parts = append(parts,
			fmt.Sprintf("MIN(%s) AS %s", f, colMinValue),
			fmt.Sprintf("MAX(%s) AS %s", f, colMaxValue),
			fmt.Sprintf("AVG(%s) AS %s", f, colAvgValue),
		)
		if d.stddev != nil {
			parts = append(parts, fmt.Sprintf("%s AS %s", d.stddev(f), colStddevValue))
		} else {
			parts = append(parts, fmt.Sprintf(
				"CASE WHEN COUNT(%[1]s) > 1 THEN (SUM(%[1]s * %[1]s) - SUM(%[1]s) * SUM(%[1]s) / COUNT(%[1]s)) / (COUNT(%[1]s) - 1) END AS %[2]s",
				f, colVarianceValue))
		}
	case models.TypeCategoryString:
		l := d.length(col)
		parts = append(parts,
			fmt.Sprintf("MIN(%s) AS %s", l, colMinLength),
			fmt.Sprintf("MAX(%s) AS %s", l, colMaxLength),
			fmt.Sprintf("AVG(%s) AS %s", d.toFloat(l), colAvgLength),
		)
	case models.TypeCategoryDate:
		minExpr, maxExpr := "MIN("+col+")", "MAX("+col+")"
		parts = append(parts,
			fmt.Sprintf("%s AS %s", d.toText(minExpr), colMinValue),
			fmt.Sprintf("%s AS %s", d.toText(maxExpr), colMaxValue),
			fmt.Sprintf("%s AS %s", d.daySpan(minExpr, maxExpr), colDateRangeDays),
		)
	}

	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(parts, ", "), d.QualifiedTable(ref))
}

func (d *sqlDialect) TopValuesQuery(ref TableRef, column string, limit int) string {
	col := d.quote(column)
	text := d.toText(col)
	cols := fmt.Sprintf("%s AS %s, COUNT(*) AS %s", text, colTopValue, colTopCount)
	tail := fmt.Sprintf("WHERE %s IS NOT NULL GROUP BY %s ORDER BY %s DESC, %s ASC", col, text, colTopCount, colTopValue)
	return d.selectLimited(cols, d.QualifiedTable(ref), tail, limit)
}

func castAs(typ string) func(string) string {
	return func(expr string) string { return "CAST(" + expr + " AS " + typ + ")" }
}

func quotePostgres(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// NewDialect returns the dialect of an engine family. samplePercent is the
// page percentage used by TABLESAMPLE-style clauses.
func NewDialect(family string, samplePercent float64) (Dialect, error) {
	if samplePercent <= 0 || samplePercent > 100 {
		samplePercent = 10
	}
	pct := strconv.FormatFloat(samplePercent, 'f', -1, 64)

	switch family {
	case datasource.FamilyPostgres:
		return &sqlDialect{
			family:        family,
			defaultSchema: "public",
			quote:         quotePostgres,
			pageSample:    func(p string) string { return "TABLESAMPLE SYSTEM (" + p + ")" },
			random:        "RANDOM()",
			toFloat:       func(e string) string { return "CAST(CAST(" + e + " AS NUMERIC) AS DOUBLE PRECISION)" },
			toText:        castAs("TEXT"),
			asComparable:  castAs("TEXT"),
			length:        func(e string) string { return "LENGTH(CAST(" + e + " AS TEXT))" },
			stddev:        func(e string) string { return "STDDEV_SAMP(" + e + ")" },
			daySpan: func(lo, hi string) string {
				return "CAST(FLOOR((EXTRACT(EPOCH FROM " + hi + ") - EXTRACT(EPOCH FROM " + lo + ")) / 86400) AS BIGINT)"
			},
			percent: pct,
		}, nil
	case datasource.FamilyMSSQL:
		return &sqlDialect{
			family:        family,
			defaultSchema: "dbo",
			quote:         sqldb.QuoteBracket,
			pageSample:    func(p string) string { return "TABLESAMPLE SYSTEM (" + p + " PERCENT)" },
			random:        "NEWID()",
			top:           true,
			toFloat:       castAs("FLOAT"),
			toText:        castAs("NVARCHAR(4000)"),
			asComparable:  castAs("NVARCHAR(MAX)"),
			stringsAsLOB:  true,
			length:        func(e string) string { return "LEN(CAST(" + e + " AS NVARCHAR(MAX)))" },
			stddev:        func(e string) string { return "STDEV(" + e + ")" },
			daySpan:       func(lo, hi string) string { return "DATEDIFF(day, " + lo + ", " + hi + ")" },
			percent:       pct,
		}, nil
	case datasource.FamilyMySQL:
		return &sqlDialect{
			family:       family,
			quote:        sqldb.QuoteBacktick,
			random:       "RAND()",
			toFloat:      castAs("DOUBLE"),
			toText:       castAs("CHAR"),
			asComparable: castAs("CHAR"),
			length:       func(e string) string { return "CHAR_LENGTH(" + e + ")" },
			stddev:       func(e string) string { return "STDDEV_SAMP(" + e + ")" },
			daySpan:      func(lo, hi string) string { return "DATEDIFF(" + hi + ", " + lo + ")" },
			percent:      pct,
		}, nil
	case datasource.FamilySQLite:
		return &sqlDialect{
			family:        family,
			defaultSchema: "main",
			quote:         sqldb.QuoteDouble,
			random:        "RANDOM()",
			toFloat:       castAs("REAL"),
			toText:        castAs("TEXT"),
			asComparable:  castAs("TEXT"),
			length:        func(e string) string { return "LENGTH(" + e + ")" },
			daySpan: func(lo, hi string) string {
				return "CAST(julianday(" + hi + ") - julianday(" + lo + ") AS INTEGER)"
			},
			percent: pct,
		}, nil
	case datasource.FamilyDuckDB:
		return &sqlDialect{
			family:        family,
			defaultSchema: "main",
			quote:         sqldb.QuoteDouble,
			pageSample:    func(p string) string { return "USING SAMPLE " + p + " PERCENT (system)" },
			random:        "random()",
			toFloat:       castAs("DOUBLE"),
			toText:        castAs("VARCHAR"),
			asComparable:  castAs("VARCHAR"),
			length:        func(e string) string { return "length(CAST(" + e + " AS VARCHAR))" },
			stddev:        func(e string) string { return "stddev_samp(" + e + ")" },
			daySpan: func(lo, hi string) string {
				return "date_diff('day', CAST(" + lo + " AS TIMESTAMP), CAST(" + hi + " AS TIMESTAMP))"
			},
			percent: pct,
		}, nil
	}
	return nil, fmt.Errorf("%w: no sampling dialect for family %q", apperrors.ErrUnsupportedEngine, family)
}
