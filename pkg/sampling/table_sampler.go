package sampling

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
)

// TableSampler fetches a best-effort random subset of a table's rows.
type TableSampler struct {
	logger *zap.Logger
}

// NewTableSampler creates a TableSampler.
func NewTableSampler(logger *zap.Logger) *TableSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableSampler{logger: logger.Named("table-sampler")}
}

// Sample returns up to maxRows rows. Query errors and missing tables yield an
// empty, non-nil slice.
func (s *TableSampler) Sample(ctx context.Context, q Queryable, d Dialect, ref TableRef, maxRows int) []map[string]any {
	rows := make([]map[string]any, 0)
	if maxRows <= 0 {
		return rows
	}

	sampled, err := s.run(ctx, q, d.SampleQuery(ref, maxRows))
	if err != nil {
		s.logger.Warn("Failed to sample table",
			zap.String("schema", ref.Schema),
			zap.String("table", ref.Table),
			zap.String("error", logging.SanitizeError(err)))
		return rows
	}

	// Page sampling can pick only empty pages on small tables.
	if len(sampled) == 0 {
		if fallback := d.FallbackSampleQuery(ref, maxRows); fallback != "" {
			sampled, err = s.run(ctx, q, fallback)
			if err != nil {
				s.logger.Warn("Failed to sample table with random order",
					zap.String("schema", ref.Schema),
					zap.String("table", ref.Table),
					zap.String("error", logging.SanitizeError(err)))
				return rows
			}
		}
	}

	if len(sampled) > maxRows {
		sampled = sampled[:maxRows]
	}
	return append(rows, sampled...)
}

func (s *TableSampler) run(ctx context.Context, q Queryable, query string) ([]map[string]any, error) {
	result, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}
