package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "env: \"test\"\n")

	cfg, err := LoadFromFile(path, "test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, 50, cfg.Sampling.MaxTablesPerSource)
	assert.Equal(t, 100, cfg.Sampling.MaxRowsPerTable)
	assert.Equal(t, 512000, cfg.Sampling.MaxContextSizeBytes)
	assert.Equal(t, 30000, cfg.Sampling.SamplingTimeoutMs)
	assert.Equal(t, 10, cfg.Sampling.TopValuesLimit)
	assert.Equal(t, "api_sync", cfg.Sampling.IntegrationSchema)
	assert.Equal(t, 30*time.Second, cfg.Sampling.SamplingTimeout())
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
port: "3443"
sampling:
  max_tables_per_source: 20
  max_rows_per_table: 25
database:
  host: "db.example.com"
`)

	t.Setenv("PORT", "4443")
	t.Setenv("MAX_ROWS_PER_TABLE", "40")

	cfg, err := LoadFromFile(path, "v1")
	require.NoError(t, err)

	assert.Equal(t, "4443", cfg.Port)
	assert.Equal(t, 20, cfg.Sampling.MaxTablesPerSource)
	assert.Equal(t, 40, cfg.Sampling.MaxRowsPerTable)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
}

func TestLoadFromFile_SecretsOnlyFromEnv(t *testing.T) {
	path := writeConfig(t, "database:\n  host: \"localhost\"\n")
	t.Setenv("PGPASSWORD", "from-env")
	t.Setenv("PROJECT_CREDENTIALS_KEY", "key-from-env")

	cfg, err := LoadFromFile(path, "v1")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "key-from-env", cfg.ProjectCredentialsKey)
}

func TestLoadFromFile_InvalidSampling(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative tables", "sampling:\n  max_tables_per_source: -5\n"},
		{"negative rows", "sampling:\n  max_rows_per_table: -1\n"},
		{"sample percent over 100", "sampling:\n  sample_percent: 150\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := LoadFromFile(path, "v1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid sampling configuration")
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	require.Error(t, err)
}

func TestDefaultSamplingConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultSamplingConfig().validate())
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.URL())
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", c.ConnectionString())
}
