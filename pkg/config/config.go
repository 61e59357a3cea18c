package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-insight.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database holds the metadata database where data sources are registered.
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory with metadata schema migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Datasource connection management configuration
	Datasource DatasourceConfig `yaml:"datasource"`

	// Sampling caps for insight context assembly
	Sampling SamplingConfig `yaml:"sampling"`

	// Credential encryption key for stored datasource configs.
	// Must be a 32-byte key, base64 encoded. Generate with: openssl rand -base64 32
	ProjectCredentialsKey string `yaml:"-" env:"PROJECT_CREDENTIALS_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_insight"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// DatasourceConfig holds datasource connection management settings.
type DatasourceConfig struct {
	// ConnectionTTLMinutes is how long idle datasource connections are kept alive.
	ConnectionTTLMinutes int `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	// MaxConnectionsPerProject limits concurrently pooled datasource connections per project.
	MaxConnectionsPerProject int `yaml:"max_connections_per_project" env:"DATASOURCE_MAX_CONNECTIONS_PER_PROJECT" env-default:"10"`
	// PoolMaxConns is the maximum number of connections per datasource pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	// PoolMinConns is the minimum number of connections per datasource pool.
	PoolMinConns int32 `yaml:"pool_min_conns" env:"DATASOURCE_POOL_MIN_CONNS" env-default:"1"`
}

// SamplingConfig holds the hard caps applied while profiling data sources.
type SamplingConfig struct {
	MaxTablesPerSource  int `yaml:"max_tables_per_source" env:"MAX_TABLES_PER_SOURCE" env-default:"50"`
	MaxRowsPerTable     int `yaml:"max_rows_per_table" env:"MAX_ROWS_PER_TABLE" env-default:"100"`
	MaxContextSizeBytes int `yaml:"max_context_size_bytes" env:"MAX_CONTEXT_SIZE_BYTES" env-default:"512000"`
	SamplingTimeoutMs   int `yaml:"sampling_timeout_ms" env:"SAMPLING_TIMEOUT_MS" env-default:"30000"`
	TopValuesLimit      int `yaml:"top_values_limit" env:"TOP_VALUES_LIMIT" env-default:"10"`

	// SamplePercent is the page percentage passed to TABLESAMPLE clauses.
	SamplePercent float64 `yaml:"sample_percent" env:"SAMPLE_PERCENT" env-default:"10"`

	// IntegrationSchema is the warehouse schema holding API-synced tables.
	IntegrationSchema string `yaml:"integration_schema" env:"INTEGRATION_SCHEMA" env-default:"api_sync"`
}

// DefaultSamplingConfig returns the sampling caps used when no config file is loaded.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		MaxTablesPerSource:  50,
		MaxRowsPerTable:     100,
		MaxContextSizeBytes: 512000,
		SamplingTimeoutMs:   30000,
		TopValuesLimit:      10,
		SamplePercent:       10,
		IntegrationSchema:   "api_sync",
	}
}

// SamplingTimeout returns the per-source timeout as a duration.
func (s SamplingConfig) SamplingTimeout() time.Duration {
	return time.Duration(s.SamplingTimeoutMs) * time.Millisecond
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFromFile("config.yaml", version)
}

// LoadFromFile reads configuration from the given YAML file with environment
// variable overrides. When path is empty only the environment is read.
func LoadFromFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Sampling.validate(); err != nil {
		return nil, fmt.Errorf("invalid sampling configuration: %w", err)
	}

	return cfg, nil
}

func (s SamplingConfig) validate() error {
	if s.MaxTablesPerSource <= 0 {
		return fmt.Errorf("max_tables_per_source must be positive, got %d", s.MaxTablesPerSource)
	}
	if s.MaxRowsPerTable <= 0 {
		return fmt.Errorf("max_rows_per_table must be positive, got %d", s.MaxRowsPerTable)
	}
	if s.MaxContextSizeBytes <= 0 {
		return fmt.Errorf("max_context_size_bytes must be positive, got %d", s.MaxContextSizeBytes)
	}
	if s.SamplingTimeoutMs <= 0 {
		return fmt.Errorf("sampling_timeout_ms must be positive, got %d", s.SamplingTimeoutMs)
	}
	if s.TopValuesLimit <= 0 {
		return fmt.Errorf("top_values_limit must be positive, got %d", s.TopValuesLimit)
	}
	if s.SamplePercent <= 0 || s.SamplePercent > 100 {
		return fmt.Errorf("sample_percent must be in (0, 100], got %v", s.SamplePercent)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the database as a postgres:// URL, used by golang-migrate.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
