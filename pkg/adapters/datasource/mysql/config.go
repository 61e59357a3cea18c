package mysql

import (
	"fmt"
	"time"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	TLS      string // "true", "false", "skip-verify", "preferred"

	ConnectTimeout time.Duration
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:           DefaultPort(),
		TLS:            "preferred",
		ConnectTimeout: 10 * time.Second,
	}

	host, ok := config["host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("host is required")
	}
	cfg.Host = host

	switch port := config["port"].(type) {
	case float64:
		cfg.Port = int(port)
	case int:
		cfg.Port = port
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}

	if user, ok := config["user"].(string); ok {
		cfg.User = user
	} else if user, ok := config["username"].(string); ok {
		cfg.User = user
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("user is required")
	}

	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}

	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	} else if name, ok := config["name"].(string); ok {
		cfg.Database = name
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	switch tls := config["tls"].(type) {
	case string:
		cfg.TLS = tls
	case bool:
		cfg.TLS = fmt.Sprintf("%t", tls)
	}

	if seconds, ok := config["connect_timeout"].(float64); ok && seconds > 0 {
		cfg.ConnectTimeout = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}
