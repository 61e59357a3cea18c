package sqlite

import (
	"fmt"
	"strings"
)

// DefaultSchema is the schema name SQLite gives the primary database.
const DefaultSchema = "main"

// Config contains SQLite connection options.
type Config struct {
	Path     string
	ReadOnly bool
}

// FromMap creates a Config from a generic config map.
// Sources are opened read-only unless read_only is explicitly false.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{ReadOnly: true}

	path, _ := config["path"].(string)
	if path == "" {
		path, _ = config["database"].(string)
	}
	cfg.Path = strings.TrimSpace(path)
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if ro, ok := config["read_only"].(bool); ok {
		cfg.ReadOnly = ro
	}
	return cfg, nil
}

// DSN returns the modernc.org/sqlite data source name.
func (c *Config) DSN() string {
	dsn := c.Path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	params := []string{"_pragma=busy_timeout(5000)"}
	if c.ReadOnly {
		params = append(params, "mode=ro")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
