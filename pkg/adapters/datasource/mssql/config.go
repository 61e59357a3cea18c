package mssql

import (
	"fmt"
)

// Authentication methods.
const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
	AuthAccessToken      = "access_token"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// AuthMethod is one of AuthSQL, AuthServicePrincipal, AuthAccessToken.
	AuthMethod string

	// SQL Authentication fields
	Username string
	Password string

	// Service Principal (Azure AD) fields
	TenantID     string
	ClientID     string
	ClientSecret string

	// AzureAccessToken is a pre-issued Azure AD token stored with the data source.
	AzureAccessToken string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// DefaultSchema is the schema used when a data source declares none.
const DefaultSchema = "dbo"

func stringField(config map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := config[k].(string); ok {
			return v, true
		}
	}
	return "", false
}

// FromMap creates a Config from a generic config map and auto-detects the auth method.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}

	var ok bool
	if cfg.Host, ok = stringField(config, "host"); !ok {
		return nil, fmt.Errorf("host is required")
	}

	switch port := config["port"].(type) {
	case float64: // JSON numbers are float64
		cfg.Port = int(port)
	case int:
		cfg.Port = port
	}

	if cfg.Database, ok = stringField(config, "database", "name"); !ok {
		return nil, fmt.Errorf("database is required")
	}

	switch encrypt := config["encrypt"].(type) {
	case bool:
		cfg.Encrypt = encrypt
	case string:
		cfg.Encrypt = encrypt == "true" || encrypt == "strict"
	}

	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	switch timeout := config["connection_timeout"].(type) {
	case float64:
		cfg.ConnectionTimeout = int(timeout)
	case int:
		cfg.ConnectionTimeout = timeout
	}

	// Priority: azure_access_token > client_id > username/user
	if method, _ := stringField(config, "auth_method"); method != "" {
		cfg.AuthMethod = method
	} else if _, has := stringField(config, "azure_access_token"); has {
		cfg.AuthMethod = AuthAccessToken
	} else if _, has := stringField(config, "client_id"); has {
		cfg.AuthMethod = AuthServicePrincipal
	} else if user, _ := stringField(config, "username", "user"); user != "" {
		cfg.AuthMethod = AuthSQL
	} else {
		return nil, fmt.Errorf("could not auto-detect auth method; no credentials provided")
	}

	cfg.Username, _ = stringField(config, "username", "user")
	cfg.Password, _ = stringField(config, "password")
	cfg.TenantID, _ = stringField(config, "tenant_id")
	cfg.ClientID, _ = stringField(config, "client_id")
	cfg.ClientSecret, _ = stringField(config, "client_secret")
	cfg.AzureAccessToken, _ = stringField(config, "azure_access_token")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case AuthSQL:
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case AuthServicePrincipal:
		if c.TenantID == "" {
			return fmt.Errorf("tenant_id is required for service principal")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required for service principal")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required for service principal")
		}
	case AuthAccessToken:
		if c.AzureAccessToken == "" {
			return fmt.Errorf("azure_access_token is required for access token authentication")
		}
	default:
		return fmt.Errorf("invalid auth method: %s (must be sql, service_principal, or access_token)", c.AuthMethod)
	}

	return nil
}
