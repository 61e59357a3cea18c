package sampling

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// DefaultTopValuesLimit caps the top-value histogram of string columns.
const DefaultTopValuesLimit = 10

// ColumnProfiler computes per-column statistics with one aggregate query per
// column, plus a top-values query for string columns.
type ColumnProfiler struct {
	topValuesLimit int
	logger         *zap.Logger
}

// NewColumnProfiler creates a ColumnProfiler. A non-positive limit uses DefaultTopValuesLimit.
func NewColumnProfiler(topValuesLimit int, logger *zap.Logger) *ColumnProfiler {
	if topValuesLimit <= 0 {
		topValuesLimit = DefaultTopValuesLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColumnProfiler{
		topValuesLimit: topValuesLimit,
		logger:         logger.Named("column-profiler"),
	}
}

// Profile returns the statistics of one column. It never fails: when a query
// errors the column is reported with zero statistics and the error is logged.
func (p *ColumnProfiler) Profile(ctx context.Context, q Queryable, d Dialect, ref TableRef, column, declaredType string) models.ColumnStatistics {
	category := ClassifyType(declaredType)

	stats, err := p.profile(ctx, q, d, ref, column, category)
	if err != nil {
		p.logger.Warn("Failed to compute column statistics, using zero values",
			zap.String("schema", ref.Schema),
			zap.String("table", ref.Table),
			zap.String("column", column),
			zap.String("category", string(category)),
			zap.String("error", logging.SanitizeError(err)))
		return models.ColumnStatistics{
			ColumnName:   column,
			DeclaredType: declaredType,
			Category:     category,
		}
	}

	stats.DeclaredType = declaredType
	return stats
}

func (p *ColumnProfiler) profile(ctx context.Context, q Queryable, d Dialect, ref TableRef, column string, category models.TypeCategory) (models.ColumnStatistics, error) {
	stats := models.ColumnStatistics{ColumnName: column, Category: category}

	result, err := q.Query(ctx, d.StatQuery(ref, column, category))
	if err != nil {
		return stats, fmt.Errorf("stat query: %w", err)
	}
	if len(result.Rows) == 0 {
		return stats, fmt.Errorf("stat query returned no rows")
	}
	row := result.Rows[0]

	stats.RowCount, _ = asInt64(row[colRowCount])
	stats.DistinctCount, _ = asInt64(row[colDistinctCount])
	stats.NullCount, _ = asInt64(row[colNullCount])
	stats.ComputeNullPercentage()

	switch category {
	case models.TypeCategoryNumeric:
		stats.MinValue = numberTextPtr(row[colMinValue])
		stats.MaxValue = numberTextPtr(row[colMaxValue])
		stats.AvgValue = float64Ptr(row[colAvgValue])
		stats.StddevValue = float64Ptr(row[colStddevValue])
		if stats.StddevValue == nil {
			if variance, ok := asFloat64(row[colVarianceValue]); ok {
				sd := math.Sqrt(math.Max(variance, 0))
				stats.StddevValue = &sd
			}
		}
	case models.TypeCategoryString:
		stats.MinLength = int64Ptr(row[colMinLength])
		stats.MaxLength = int64Ptr(row[colMaxLength])
		stats.AvgLength = float64Ptr(row[colAvgLength])

		top, err := p.topValues(ctx, q, d, ref, column)
		if err != nil {
			return stats, err
		}
		stats.TopValues = top
	case models.TypeCategoryDate:
		stats.MinValue = textPtr(row[colMinValue])
		stats.MaxValue = textPtr(row[colMaxValue])
		stats.DateRangeDays = int64Ptr(row[colDateRangeDays])
	}

	return stats, nil
}

func (p *ColumnProfiler) topValues(ctx context.Context, q Queryable, d Dialect, ref TableRef, column string) ([]models.TopValue, error) {
	result, err := q.Query(ctx, d.TopValuesQuery(ref, column, p.topValuesLimit))
	if err != nil {
		return nil, fmt.Errorf("top values query: %w", err)
	}

	top := make([]models.TopValue, 0, len(result.Rows))
	for _, row := range result.Rows {
		count, _ := asInt64(row[colTopCount])
		top = append(top, models.TopValue{Value: asString(row[colTopValue]), Count: count})
		if len(top) == p.topValuesLimit {
			break
		}
	}
	return top, nil
}
