package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

const sourcesYAML = `
project_id: 3b241101-e2bb-4255-8caf-4136c566a962
datasources:
  - name: analytics
    type: sqlite
    config:
      path: ./analytics.db
  - id: 9a0c7a61-5f0c-4b7e-8f0a-2a3f2c1d4e5f
    name: files
    type: duckdb
    config:
      files:
        orders: ./orders.csv
  - name: warehouse
    type: postgres
    config:
      host: localhost
      port: 5432
      schema: sales
`

func TestParseFileDatasourceRepository(t *testing.T) {
	repo, err := ParseFileDatasourceRepository([]byte(sourcesYAML))
	require.NoError(t, err)

	projectID := uuid.MustParse("3b241101-e2bb-4255-8caf-4136c566a962")
	assert.Equal(t, projectID, repo.ProjectID())

	list, err := repo.List(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "analytics", list[0].Name)
	assert.Equal(t, "files", list[1].Name)
	assert.Equal(t, "warehouse", list[2].Name)

	files, err := repo.Get(context.Background(), projectID, uuid.MustParse("9a0c7a61-5f0c-4b7e-8f0a-2a3f2c1d4e5f"))
	require.NoError(t, err)
	assert.Equal(t, "duckdb", files.DatasourceType)
	assert.Equal(t, map[string]any{"orders": "./orders.csv"}, files.Config["files"])

	warehouse := list[2]
	assert.Equal(t, 5432, warehouse.Config["port"])
	assert.Equal(t, "sales", warehouse.DeclaredSchema())
	assert.Equal(t, projectID, warehouse.ProjectID)
}

func TestFileDatasourceRepository_StableDerivedIDs(t *testing.T) {
	a, err := ParseFileDatasourceRepository([]byte(sourcesYAML))
	require.NoError(t, err)
	b, err := ParseFileDatasourceRepository([]byte(sourcesYAML))
	require.NoError(t, err)

	idsA, err := a.Resolve([]string{"analytics"})
	require.NoError(t, err)
	idsB, err := b.Resolve([]string{"analytics"})
	require.NoError(t, err)
	assert.Equal(t, idsA, idsB)
	assert.NotEqual(t, uuid.Nil, idsA[0])
}

func TestFileDatasourceRepository_Resolve(t *testing.T) {
	repo, err := ParseFileDatasourceRepository([]byte(sourcesYAML))
	require.NoError(t, err)

	ids, err := repo.Resolve([]string{"warehouse", "9a0c7a61-5f0c-4b7e-8f0a-2a3f2c1d4e5f", " analytics "})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, uuid.MustParse("9a0c7a61-5f0c-4b7e-8f0a-2a3f2c1d4e5f"), ids[1])

	_, err = repo.Resolve([]string{"missing"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFileDatasourceRepository_GetScopedToProject(t *testing.T) {
	repo, err := ParseFileDatasourceRepository([]byte(sourcesYAML))
	require.NoError(t, err)
	ids, err := repo.Resolve([]string{"analytics"})
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), uuid.New(), ids[0])
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.Get(context.Background(), repo.ProjectID(), uuid.New())
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFileDatasourceRepository_NoProjectServesAll(t *testing.T) {
	repo, err := ParseFileDatasourceRepository([]byte("datasources:\n  - name: local\n    type: sqlite\n"))
	require.NoError(t, err)
	ids, err := repo.Resolve([]string{"local"})
	require.NoError(t, err)

	ds, err := repo.Get(context.Background(), uuid.New(), ids[0])
	require.NoError(t, err)
	assert.NotNil(t, ds.Config)

	// Returned values are copies.
	ds.Name = "changed"
	again, err := repo.Get(context.Background(), uuid.Nil, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "local", again.Name)
}

func TestParseFileDatasourceRepository_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "datasources:\n  - type: sqlite\n", "name is required"},
		{"missing type", "datasources:\n  - name: a\n", "type is required"},
		{"duplicate name", "datasources:\n  - name: a\n    type: sqlite\n  - name: a\n    type: mysql\n", "conflict"},
		{"bad yaml", "datasources: [", "failed to parse"},
		{"bad id", "datasources:\n  - id: not-a-uuid\n    name: a\n    type: sqlite\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFileDatasourceRepository([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFileDatasourceRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sourcesYAML), 0o644))

	repo, err := LoadFileDatasourceRepository(path)
	require.NoError(t, err)
	list, err := repo.List(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = LoadFileDatasourceRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
