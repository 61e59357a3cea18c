package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Datasource represents an external data connection for a project.
// The Config field contains connection details (credentials, host, etc.)
// which are encrypted at rest by the repository layer.
type Datasource struct {
	ID             uuid.UUID      `json:"id" yaml:"id"`
	ProjectID      uuid.UUID      `json:"project_id" yaml:"project_id"`
	Name           string         `json:"name" yaml:"name"`
	DatasourceType string         `json:"datasource_type" yaml:"type"` // "postgres", "mysql", "stripe", etc.
	Config         map[string]any `json:"config" yaml:"config"`        // Decrypted config, structure varies by type
	CreatedAt      time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time      `json:"updated_at" yaml:"-"`
}

// ConfigString returns a string config value, or "" when missing or not a string.
func (d *Datasource) ConfigString(key string) string {
	if d == nil || d.Config == nil {
		return ""
	}
	s, _ := d.Config[key].(string)
	return strings.TrimSpace(s)
}

// DeclaredSchema returns the schema the data source was registered with.
func (d *Datasource) DeclaredSchema() string {
	return d.ConfigString("schema")
}
