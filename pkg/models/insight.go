package models

import (
	"github.com/google/uuid"
)

// ConnectionStatus values for DataSourceContext.
const (
	ConnectionStatusSuccess = "success"
	ConnectionStatusFailed  = "failed"
)

// TypeCategory groups declared column types for statistics.
type TypeCategory string

const (
	TypeCategoryNumeric TypeCategory = "numeric"
	TypeCategoryString  TypeCategory = "string"
	TypeCategoryDate    TypeCategory = "date"
	TypeCategoryBoolean TypeCategory = "boolean"
	TypeCategoryOther   TypeCategory = "other"
)

// TopValue is one frequent value of a string column.
type TopValue struct {
	Value string `json:"value" yaml:"value"`
	Count int64  `json:"count" yaml:"count"`
}

// ColumnStatistics is the profile of a single column.
// Only the fields matching the column's category are populated.
type ColumnStatistics struct {
	ColumnName     string       `json:"column_name" yaml:"column_name"`
	DeclaredType   string       `json:"declared_type" yaml:"declared_type"`
	Category       TypeCategory `json:"category" yaml:"category"`
	RowCount       int64        `json:"row_count" yaml:"row_count"`
	DistinctCount  int64        `json:"distinct_count" yaml:"distinct_count"`
	NullCount      int64        `json:"null_count" yaml:"null_count"`
	NullPercentage float64      `json:"null_percentage" yaml:"null_percentage"`

	// numeric: numbers, date: ISO text
	MinValue    *string  `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue    *string  `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	AvgValue    *float64 `json:"avg_value,omitempty" yaml:"avg_value,omitempty"`
	StddevValue *float64 `json:"stddev_value,omitempty" yaml:"stddev_value,omitempty"`

	// string
	MinLength *int64     `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int64     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	AvgLength *float64   `json:"avg_length,omitempty" yaml:"avg_length,omitempty"`
	TopValues []TopValue `json:"top_values,omitempty" yaml:"top_values,omitempty"`

	// date
	DateRangeDays *int64 `json:"date_range_days,omitempty" yaml:"date_range_days,omitempty"`
}

// ComputeNullPercentage sets NullPercentage from NullCount and RowCount.
func (c *ColumnStatistics) ComputeNullPercentage() {
	if c.RowCount > 0 {
		c.NullPercentage = float64(c.NullCount) / float64(c.RowCount) * 100
		return
	}
	c.NullPercentage = 0
}

// ForeignKey is a reference from a sampled table to another table.
type ForeignKey struct {
	Column           string `json:"column" yaml:"column"`
	ReferencedSchema string `json:"referenced_schema" yaml:"referenced_schema"`
	ReferencedTable  string `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumn string `json:"referenced_column" yaml:"referenced_column"`
}

// TableSample is the profile of one table: a random sample of rows plus
// per-column statistics.
type TableSample struct {
	Schema           string             `json:"schema" yaml:"schema"`
	TableName        string             `json:"table_name" yaml:"table_name"`
	DisplayName      string             `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	RowCount         int64              `json:"row_count" yaml:"row_count"`
	SampleRows       []map[string]any   `json:"sample_rows" yaml:"sample_rows"`
	ColumnStatistics []ColumnStatistics `json:"column_statistics" yaml:"column_statistics"`
	ForeignKeys      []ForeignKey       `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

// SchemaSample groups sampled tables under a schema.
type SchemaSample struct {
	SchemaName string        `json:"schema_name" yaml:"schema_name"`
	Tables     []TableSample `json:"tables" yaml:"tables"`
}

// DataSourceContext is the profile of one data source.
// A failed source carries no schemas and a non-empty ErrorMessage.
type DataSourceContext struct {
	DataSourceID       uuid.UUID      `json:"data_source_id" yaml:"data_source_id"`
	DataSourceName     string         `json:"data_source_name" yaml:"data_source_name"`
	DataSourceType     string         `json:"data_source_type" yaml:"data_source_type"`
	Schemas            []SchemaSample `json:"schemas" yaml:"schemas"`
	TotalTables        int            `json:"total_tables" yaml:"total_tables"`
	TotalRowsEstimated int64          `json:"total_rows_estimated" yaml:"total_rows_estimated"`
	ConnectionStatus   string         `json:"connection_status" yaml:"connection_status"`
	ErrorMessage       string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// Succeeded reports whether the source was profiled.
func (d *DataSourceContext) Succeeded() bool {
	return d.ConnectionStatus == ConnectionStatusSuccess
}

// SampledTables returns the number of tables across all schemas.
func (d *DataSourceContext) SampledTables() int {
	n := 0
	for _, s := range d.Schemas {
		n += len(s.Tables)
	}
	return n
}

// SampledRows returns the number of sample rows across all tables.
func (d *DataSourceContext) SampledRows() int {
	n := 0
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			n += len(t.SampleRows)
		}
	}
	return n
}

// FailedDataSourceContext builds the context recorded for a source that could not be profiled.
func FailedDataSourceContext(id uuid.UUID, name, dsType, message string) DataSourceContext {
	return DataSourceContext{
		DataSourceID:     id,
		DataSourceName:   name,
		DataSourceType:   dsType,
		Schemas:          []SchemaSample{},
		ConnectionStatus: ConnectionStatusFailed,
		ErrorMessage:     message,
	}
}

// SamplingInfo summarises the sampling parameters of one assembly.
type SamplingInfo struct {
	MaxRowsPerTable  int `json:"max_rows_per_table" yaml:"max_rows_per_table"`
	TotalRowsSampled int `json:"total_rows_sampled" yaml:"total_rows_sampled"`
	TablesSampled    int `json:"tables_sampled" yaml:"tables_sampled"`
}

// InsightContext aggregates the profiles of every requested data source.
type InsightContext struct {
	ProjectID          uuid.UUID           `json:"project_id" yaml:"project_id"`
	DataSources        []DataSourceContext `json:"data_sources" yaml:"data_sources"`
	TotalSources       int                 `json:"total_sources" yaml:"total_sources"`
	TotalTables        int                 `json:"total_tables" yaml:"total_tables"`
	TotalRowsEstimated int64               `json:"total_rows_estimated" yaml:"total_rows_estimated"`
	ContextSizeBytes   int                 `json:"context_size_bytes" yaml:"context_size_bytes"`
	SamplingInfo       SamplingInfo        `json:"sampling_info" yaml:"sampling_info"`
}
