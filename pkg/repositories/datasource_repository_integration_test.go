//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/crypto"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/testhelpers"
)

func TestDatasourceRepository_Integration_Lifecycle(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	enc, err := crypto.NewCredentialEncryptor(testKey)
	require.NoError(t, err)

	repo := NewDatasourceRepository(engineDB.DB, enc)
	ctx := context.Background()
	projectID := uuid.New()

	ds := &models.Datasource{
		ProjectID:      projectID,
		Name:           "warehouse",
		DatasourceType: "postgres",
		Config:         map[string]any{"host": "localhost", "password": "secret"},
	}
	require.NoError(t, repo.Create(ctx, ds))
	require.NotEqual(t, uuid.Nil, ds.ID)

	// Stored config is encrypted at rest.
	var stored string
	require.NoError(t, engineDB.DB.QueryRow(ctx,
		`SELECT datasource_config FROM engine_datasources WHERE id = $1`, ds.ID).Scan(&stored))
	assert.NotContains(t, stored, "secret")

	got, err := repo.Get(ctx, projectID, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Config["password"])

	_, err = repo.Get(ctx, uuid.New(), ds.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound, "other projects cannot read the datasource")

	dup := &models.Datasource{ProjectID: projectID, Name: "warehouse", DatasourceType: "mysql"}
	require.ErrorIs(t, repo.Create(ctx, dup), apperrors.ErrConflict)

	list, err := repo.List(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, projectID, ds.ID))
	_, err = repo.Get(ctx, projectID, ds.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
