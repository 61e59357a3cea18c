package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/prompts"
)

// SamplingTimeoutMessage is the error message of a source that did not
// finish within the sampling timeout.
const SamplingTimeoutMessage = "Sampling timeout"

// SourceProfiler profiles a single data source.
type SourceProfiler interface {
	ProfileSource(ctx context.Context, projectID, dataSourceID uuid.UUID, maxRowsPerTable int, tableNameMapping map[string]string) models.DataSourceContext
}

// SourceIdentifier is implemented by profilers that can name a source
// without profiling it. Timed out sources keep their name and type when the
// profiler supports it.
type SourceIdentifier interface {
	IdentifySource(ctx context.Context, projectID, dataSourceID uuid.UUID) (name, datasourceType string, err error)
}

// InsightContextResult is the assembled context and its markdown rendering.
type InsightContextResult struct {
	Context  *models.InsightContext `json:"context" yaml:"context"`
	Markdown string                 `json:"markdown" yaml:"markdown"`
}

// InsightContextService assembles the statistical context of several data sources.
type InsightContextService interface {
	// BuildInsightContext profiles every requested source concurrently and
	// renders the combined markdown. It always returns a result; failed or
	// timed out sources are reported inside it.
	BuildInsightContext(ctx context.Context, projectID uuid.UUID, dataSourceIDs []uuid.UUID, maxRowsPerTable int, tableNameMapping map[string]string) *InsightContextResult

	// ProfileDataSource profiles a single source under the same row cap and
	// sampling timeout as BuildInsightContext.
	ProfileDataSource(ctx context.Context, projectID, dataSourceID uuid.UUID, maxRowsPerTable int) models.DataSourceContext
}

type insightContextService struct {
	profiler SourceProfiler
	cfg      config.SamplingConfig
	logger   *zap.Logger
}

// NewInsightContextService creates an InsightContextService.
func NewInsightContextService(profiler SourceProfiler, cfg config.SamplingConfig, logger *zap.Logger) InsightContextService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &insightContextService{
		profiler: profiler,
		cfg:      cfg,
		logger:   logger.Named("insight-context"),
	}
}

func (s *insightContextService) BuildInsightContext(ctx context.Context, projectID uuid.UUID, dataSourceIDs []uuid.UUID, maxRowsPerTable int, tableNameMapping map[string]string) *InsightContextResult {
	maxRows := s.effectiveMaxRows(maxRowsPerTable)
	if tableNameMapping == nil {
		tableNameMapping = map[string]string{}
	}

	start := time.Now()
	results := make([]models.DataSourceContext, len(dataSourceIDs))

	var wg conc.WaitGroup
	for i, id := range dataSourceIDs {
		wg.Go(func() {
			results[i] = s.profileWithTimeout(ctx, projectID, id, maxRows, tableNameMapping)
		})
	}
	wg.Wait()

	succeeded := lo.Filter(results, func(d models.DataSourceContext, _ int) bool { return d.Succeeded() })

	ic := &models.InsightContext{
		ProjectID:          projectID,
		DataSources:        results,
		TotalSources:       len(results),
		TotalTables:        lo.SumBy(succeeded, func(d models.DataSourceContext) int { return d.TotalTables }),
		TotalRowsEstimated: lo.SumBy(succeeded, func(d models.DataSourceContext) int64 { return d.TotalRowsEstimated }),
		SamplingInfo: models.SamplingInfo{
			MaxRowsPerTable:  maxRows,
			TotalRowsSampled: lo.SumBy(succeeded, func(d models.DataSourceContext) int { return d.SampledRows() }),
			TablesSampled:    lo.SumBy(succeeded, func(d models.DataSourceContext) int { return d.SampledTables() }),
		},
	}

	budget := s.cfg.MaxContextSizeBytes
	markdown, truncated := prompts.TruncateToBudget(prompts.BuildInsightContextMarkdown(ic, budget), budget)
	ic.ContextSizeBytes = len(markdown)

	s.logger.Info("Built insight context",
		zap.String("project_id", projectID.String()),
		zap.Int("sources", ic.TotalSources),
		zap.Int("succeeded", len(succeeded)),
		zap.Int("tables", ic.TotalTables),
		zap.Int("context_size_bytes", ic.ContextSizeBytes),
		zap.Bool("truncated", truncated),
		zap.Duration("elapsed", time.Since(start)))

	return &InsightContextResult{Context: ic, Markdown: markdown}
}

func (s *insightContextService) ProfileDataSource(ctx context.Context, projectID, dataSourceID uuid.UUID, maxRowsPerTable int) models.DataSourceContext {
	return s.profileWithTimeout(ctx, projectID, dataSourceID, s.effectiveMaxRows(maxRowsPerTable), map[string]string{})
}

// effectiveMaxRows applies the default and the configured cap.
func (s *insightContextService) effectiveMaxRows(requested int) int {
	limit := s.cfg.MaxRowsPerTable
	if limit <= 0 {
		limit = config.DefaultSamplingConfig().MaxRowsPerTable
	}
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

// profileWithTimeout runs one source under the sampling timeout. The profile
// context is cancelled at the deadline, and the wait ends there even if a
// driver keeps the query running.
func (s *insightContextService) profileWithTimeout(parent context.Context, projectID, id uuid.UUID, maxRows int, tableNameMapping map[string]string) models.DataSourceContext {
	timeout := s.cfg.SamplingTimeout()
	if timeout <= 0 {
		timeout = config.DefaultSamplingConfig().SamplingTimeout()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	identity := s.identify(ctx, projectID, id)

	done := make(chan models.DataSourceContext, 1)
	go func() {
		var pc panics.Catcher
		pc.Try(func() {
			done <- s.profiler.ProfileSource(ctx, projectID, id, maxRows, tableNameMapping)
		})
		if r := pc.Recovered(); r != nil {
			s.logger.Error("Source profiling panicked",
				zap.String("datasource_id", id.String()),
				zap.String("panic", fmt.Sprint(r.Value)))
			done <- models.FailedDataSourceContext(id, identity.DataSourceName, identity.DataSourceType, "internal error while sampling")
		}
	}()

	select {
	case result := <-done:
		if ctx.Err() == nil {
			return result
		}
		if result.DataSourceName != "" {
			identity = result
		}
		return s.interrupted(ctx, id, identity)
	case <-ctx.Done():
		return s.interrupted(ctx, id, identity)
	}
}

// identify looks up the name and type of a source. An unknown source yields
// an empty identity; the profile then reports the lookup failure itself.
func (s *insightContextService) identify(ctx context.Context, projectID, id uuid.UUID) models.DataSourceContext {
	identity := models.DataSourceContext{DataSourceID: id}
	identifier, ok := s.profiler.(SourceIdentifier)
	if !ok {
		return identity
	}
	name, dsType, err := identifier.IdentifySource(ctx, projectID, id)
	if err != nil {
		s.logger.Debug("Failed to identify source",
			zap.String("datasource_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		return identity
	}
	identity.DataSourceName = name
	identity.DataSourceType = dsType
	return identity
}

func (s *insightContextService) interrupted(ctx context.Context, id uuid.UUID, partial models.DataSourceContext) models.DataSourceContext {
	reason := ctx.Err()
	msg := logging.SanitizeError(reason)
	if errors.Is(reason, context.DeadlineExceeded) {
		reason = apperrors.ErrSamplingTimeout
		msg = SamplingTimeoutMessage
	}
	s.logger.Warn("Source sampling did not finish",
		zap.String("datasource_id", id.String()),
		zap.Error(reason))
	return models.FailedDataSourceContext(id, partial.DataSourceName, partial.DataSourceType, msg)
}
