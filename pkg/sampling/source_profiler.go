package sampling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// SourceProfiler profiles every table of one data source, up to the table cap.
type SourceProfiler struct {
	repo     DataSourceRepository
	adapters datasource.DatasourceAdapterFactory
	sampler  *TableSampler
	columns  *ColumnProfiler
	cfg      config.SamplingConfig
	logger   *zap.Logger
}

// NewSourceProfiler creates a SourceProfiler.
func NewSourceProfiler(
	repo DataSourceRepository,
	adapters datasource.DatasourceAdapterFactory,
	cfg config.SamplingConfig,
	logger *zap.Logger,
) *SourceProfiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceProfiler{
		repo:     repo,
		adapters: adapters,
		sampler:  NewTableSampler(logger),
		columns:  NewColumnProfiler(cfg.TopValuesLimit, logger),
		cfg:      cfg,
		logger:   logger.Named("source-profiler"),
	}
}

// source is a resolved data source with open handles.
type source struct {
	dialect   Dialect
	schema    string
	collector SchemaCollector
	executor  datasource.QueryExecutor
	close     func()
}

// IdentifySource returns the registered name and type of a data source
// without connecting to it.
func (p *SourceProfiler) IdentifySource(ctx context.Context, projectID, dataSourceID uuid.UUID) (string, string, error) {
	ds, err := p.repo.Get(ctx, projectID, dataSourceID)
	if err != nil {
		return "", "", err
	}
	return ds.Name, ds.DatasourceType, nil
}

// ProfileSource samples and profiles one data source. Connection-level
// failures are returned as a failed DataSourceContext, never as an error.
func (p *SourceProfiler) ProfileSource(ctx context.Context, projectID, dataSourceID uuid.UUID, maxRowsPerTable int, tableNameMapping map[string]string) models.DataSourceContext {
	ds, err := p.repo.Get(ctx, projectID, dataSourceID)
	if err != nil {
		p.logger.Warn("Failed to resolve data source",
			zap.String("datasource_id", dataSourceID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return models.FailedDataSourceContext(dataSourceID, "", "", logging.SanitizeError(err))
	}

	src, err := p.open(ctx, projectID, ds)
	if err != nil {
		p.logger.Warn("Failed to connect to data source",
			zap.String("datasource_id", dataSourceID.String()),
			zap.String("datasource_type", ds.DatasourceType),
			zap.String("error", logging.SanitizeError(err)))
		return models.FailedDataSourceContext(dataSourceID, ds.Name, ds.DatasourceType, logging.SanitizeError(err))
	}
	defer src.close()

	tables, err := src.collector.ListTables(ctx, src.schema)
	if err != nil {
		p.logger.Warn("Failed to list tables",
			zap.String("datasource_id", dataSourceID.String()),
			zap.String("schema", src.schema),
			zap.String("error", logging.SanitizeError(err)))
		return models.FailedDataSourceContext(dataSourceID, ds.Name, ds.DatasourceType, logging.SanitizeError(err))
	}
	if p.cfg.MaxTablesPerSource > 0 && len(tables) > p.cfg.MaxTablesPerSource {
		tables = tables[:p.cfg.MaxTablesPerSource]
	}

	result := models.DataSourceContext{
		DataSourceID:     dataSourceID,
		DataSourceName:   ds.Name,
		DataSourceType:   ds.DatasourceType,
		Schemas:          []models.SchemaSample{},
		TotalTables:      len(tables),
		ConnectionStatus: models.ConnectionStatusSuccess,
	}

	schemaIndex := make(map[string]int)
	for _, t := range tables {
		if ctx.Err() != nil {
			p.logger.Warn("Stopped profiling data source",
				zap.String("datasource_id", dataSourceID.String()),
				zap.Error(ctx.Err()))
			break
		}

		schemaName := t.Schema
		if schemaName == "" {
			schemaName = src.schema
		}
		sample, ok := p.profileTable(ctx, src, TableRef{Schema: schemaName, Table: t.Name}, maxRowsPerTable, tableNameMapping)
		if !ok {
			continue
		}

		result.TotalRowsEstimated += sample.RowCount
		idx, seen := schemaIndex[schemaName]
		if !seen {
			idx = len(result.Schemas)
			schemaIndex[schemaName] = idx
			result.Schemas = append(result.Schemas, models.SchemaSample{SchemaName: schemaName, Tables: []models.TableSample{}})
		}
		result.Schemas[idx].Tables = append(result.Schemas[idx].Tables, sample)
	}

	p.logger.Debug("Profiled data source",
		zap.String("datasource_id", dataSourceID.String()),
		zap.Int("tables", result.SampledTables()),
		zap.Int64("rows_estimated", result.TotalRowsEstimated))

	return result
}

// open resolves the engine family and schema, then opens the collector and executor.
func (p *SourceProfiler) open(ctx context.Context, projectID uuid.UUID, ds *models.Datasource) (*source, error) {
	info, err := p.adapters.AdapterInfo(ds.DatasourceType)
	if err != nil {
		return nil, err
	}

	dialect, err := NewDialect(info.Family, p.cfg.SamplePercent)
	if err != nil {
		return nil, err
	}

	discoverer, err := p.adapters.NewSchemaDiscoverer(ctx, ds.DatasourceType, ds.Config, projectID, ds.ID)
	if err != nil {
		return nil, fmt.Errorf("open schema discoverer: %w", err)
	}
	executor, err := p.adapters.NewQueryExecutor(ctx, ds.DatasourceType, ds.Config, projectID, ds.ID)
	if err != nil {
		_ = discoverer.Close()
		return nil, fmt.Errorf("open query executor: %w", err)
	}

	return &source{
		dialect:   dialect,
		schema:    p.resolveSchema(ds, info, dialect),
		collector: NewDiscovererCollector(discoverer),
		executor:  executor,
		close: func() {
			if err := executor.Close(); err != nil {
				p.logger.Debug("Failed to close query executor", zap.Error(err))
			}
			if err := discoverer.Close(); err != nil {
				p.logger.Debug("Failed to close schema discoverer", zap.Error(err))
			}
		},
	}, nil
}

// resolveSchema picks the schema to profile. Integration sources always use
// the warehouse schema; others use their declared schema or the engine default.
func (p *SourceProfiler) resolveSchema(ds *models.Datasource, info datasource.DatasourceAdapterInfo, d Dialect) string {
	if info.Integration {
		return p.cfg.IntegrationSchema
	}
	if schema := ds.DeclaredSchema(); schema != "" {
		return schema
	}
	if schema := d.DefaultSchema(); schema != "" {
		return schema
	}
	return ds.ConfigString("database")
}

func (p *SourceProfiler) profileTable(ctx context.Context, src *source, ref TableRef, maxRows int, tableNameMapping map[string]string) (models.TableSample, bool) {
	columns, err := src.collector.DescribeTable(ctx, ref.Schema, ref.Table)
	if err != nil {
		p.logger.Warn("Skipping table, failed to describe columns",
			zap.String("schema", ref.Schema),
			zap.String("table", ref.Table),
			zap.String("error", logging.SanitizeError(err)))
		return models.TableSample{}, false
	}

	sample := models.TableSample{
		Schema:           ref.Schema,
		TableName:        ref.Table,
		DisplayName:      tableNameMapping[ref.Table],
		SampleRows:       p.sampler.Sample(ctx, src.executor, src.dialect, ref, maxRows),
		ColumnStatistics: make([]models.ColumnStatistics, 0, len(columns)),
	}

	for _, col := range columns {
		sample.ColumnStatistics = append(sample.ColumnStatistics,
			p.columns.Profile(ctx, src.executor, src.dialect, ref, col.Name, col.DataType))
	}
	if ctx.Err() != nil {
		p.logger.Warn("Skipping table, profiling interrupted",
			zap.String("schema", ref.Schema),
			zap.String("table", ref.Table),
			zap.Error(ctx.Err()))
		return models.TableSample{}, false
	}
	if len(sample.ColumnStatistics) > 0 {
		sample.RowCount = sample.ColumnStatistics[0].RowCount
	}

	if fkc, ok := src.collector.(ForeignKeyCollector); ok {
		fks, err := fkc.ForeignKeys(ctx, ref.Schema, ref.Table)
		if err != nil {
			p.logger.Debug("Failed to discover foreign keys",
				zap.String("table", ref.Table),
				zap.String("error", logging.SanitizeError(err)))
		} else {
			sample.ForeignKeys = fks
		}
	}

	return sample, true
}
