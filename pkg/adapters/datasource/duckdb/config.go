package duckdb

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultSchema is the schema DuckDB creates tables and views in.
const DefaultSchema = "main"

// FileTable exposes a data file as a view.
type FileTable struct {
	Name string
	Path string
}

// Config contains DuckDB connection options. Either Path names a database
// file, or Files lists CSV, Parquet or JSON files to query from memory.
type Config struct {
	Path     string
	ReadOnly bool
	Files    []FileTable
}

// FromMap creates a Config from a generic config map. files may be a map of
// view name to file path, or a list of paths whose base names become view names.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{ReadOnly: true}

	if path, ok := config["path"].(string); ok {
		cfg.Path = strings.TrimSpace(path)
	}
	if ro, ok := config["read_only"].(bool); ok {
		cfg.ReadOnly = ro
	}

	switch files := config["files"].(type) {
	case map[string]any:
		for name, p := range files {
			path, ok := p.(string)
			if !ok || path == "" {
				return nil, fmt.Errorf("file path for %q must be a string", name)
			}
			cfg.Files = append(cfg.Files, FileTable{Name: name, Path: path})
		}
		sort.Slice(cfg.Files, func(i, j int) bool { return cfg.Files[i].Name < cfg.Files[j].Name })
	case []any:
		for _, p := range files {
			path, ok := p.(string)
			if !ok || path == "" {
				return nil, fmt.Errorf("files must be a list of paths")
			}
			cfg.Files = append(cfg.Files, FileTable{Name: viewName(path), Path: path})
		}
	case nil:
	default:
		return nil, fmt.Errorf("files must be a map or a list")
	}

	if cfg.Path == "" && len(cfg.Files) == 0 {
		return nil, fmt.Errorf("path or files is required")
	}
	for _, f := range cfg.Files {
		if _, err := readerFunc(f.Path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// viewName derives a view name from a file name: "data/Sales 2024.csv" -> "sales_2024".
func viewName(path string) string {
	base := filepath.Base(path)
	for {
		ext := filepath.Ext(base)
		if ext == "" {
			break
		}
		base = strings.TrimSuffix(base, ext)
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// readerFunc returns the DuckDB table function that reads path.
func readerFunc(path string) (string, error) {
	lower := strings.ToLower(path)
	lower = strings.TrimSuffix(lower, ".gz")
	switch {
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".tsv"):
		return "read_csv_auto", nil
	case strings.HasSuffix(lower, ".parquet"):
		return "read_parquet", nil
	case strings.HasSuffix(lower, ".json"), strings.HasSuffix(lower, ".ndjson"), strings.HasSuffix(lower, ".jsonl"):
		return "read_json_auto", nil
	}
	return "", fmt.Errorf("unsupported file type: %s", path)
}

// DSN returns the go-duckdb data source name. Empty means in-memory.
func (c *Config) DSN() string {
	if c.Path == "" {
		return ""
	}
	if c.ReadOnly {
		return c.Path + "?access_mode=read_only"
	}
	return c.Path
}

// ViewStatements returns the CREATE VIEW statements for Files.
func (c *Config) ViewStatements() []string {
	stmts := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		fn, err := readerFunc(f.Path)
		if err != nil {
			continue
		}
		stmts = append(stmts, fmt.Sprintf(`CREATE OR REPLACE VIEW "%s" AS SELECT * FROM %s('%s')`,
			strings.ReplaceAll(f.Name, `"`, `""`), fn, strings.ReplaceAll(f.Path, `'`, `''`)))
	}
	return stmts
}
