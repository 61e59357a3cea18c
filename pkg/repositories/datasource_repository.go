package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/crypto"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// DBTX is the subset of pgxpool.Pool used by the repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DatasourceRepository defines the interface for datasource data access.
// Configs are encrypted on write and decrypted on read.
type DatasourceRepository interface {
	// Create inserts a new datasource. Returns apperrors.ErrConflict if the name already exists for the project.
	Create(ctx context.Context, ds *models.Datasource) error

	// Get retrieves a datasource by ID within a project with its config decrypted.
	Get(ctx context.Context, projectID, id uuid.UUID) (*models.Datasource, error)

	// List retrieves all datasources for a project.
	List(ctx context.Context, projectID uuid.UUID) ([]*models.Datasource, error)

	// Delete removes a datasource by ID.
	Delete(ctx context.Context, projectID, id uuid.UUID) error
}

// datasourceRepository implements DatasourceRepository using PostgreSQL.
type datasourceRepository struct {
	db        DBTX
	encryptor *crypto.CredentialEncryptor
}

// NewDatasourceRepository creates a new datasource repository.
func NewDatasourceRepository(db DBTX, encryptor *crypto.CredentialEncryptor) DatasourceRepository {
	return &datasourceRepository{db: db, encryptor: encryptor}
}

const datasourceColumns = `id, project_id, name, datasource_type, datasource_config, created_at, updated_at`

// Create inserts a new datasource.
func (r *datasourceRepository) Create(ctx context.Context, ds *models.Datasource) error {
	encryptedConfig, err := r.encryptor.EncryptConfig(ds.Config)
	if err != nil {
		return fmt.Errorf("failed to encrypt datasource config: %w", err)
	}

	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	query := `
		INSERT INTO engine_datasources (project_id, name, datasource_type, datasource_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err = r.db.QueryRow(ctx, query,
		ds.ProjectID,
		ds.Name,
		ds.DatasourceType,
		encryptedConfig,
		ds.CreatedAt,
		ds.UpdatedAt,
	).Scan(&ds.ID)
	if err != nil {
		// Unique constraint violation (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("datasource %q: %w", ds.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create datasource: %w", err)
	}

	return nil
}

// Get retrieves a datasource by ID within a project.
func (r *datasourceRepository) Get(ctx context.Context, projectID, id uuid.UUID) (*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + `
		FROM engine_datasources
		WHERE project_id = $1 AND id = $2`

	ds, err := r.scan(r.db.QueryRow(ctx, query, projectID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("datasource %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return ds, nil
}

// List retrieves all datasources for a project ordered by name.
func (r *datasourceRepository) List(ctx context.Context, projectID uuid.UUID) ([]*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + `
		FROM engine_datasources
		WHERE project_id = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	defer rows.Close()

	datasources := []*models.Datasource{}
	for rows.Next() {
		ds, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		datasources = append(datasources, ds)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasources: %w", err)
	}

	return datasources, nil
}

// Delete removes a datasource by ID.
func (r *datasourceRepository) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	query := `DELETE FROM engine_datasources WHERE project_id = $1 AND id = $2`

	result, err := r.db.Exec(ctx, query, projectID, id)
	if err != nil {
		return fmt.Errorf("failed to delete datasource: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("datasource %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

func (r *datasourceRepository) scan(row pgx.Row) (*models.Datasource, error) {
	var ds models.Datasource
	var encryptedConfig string
	err := row.Scan(
		&ds.ID,
		&ds.ProjectID,
		&ds.Name,
		&ds.DatasourceType,
		&encryptedConfig,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan datasource: %w", err)
	}

	ds.Config, err = r.encryptor.DecryptConfig(encryptedConfig)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return nil, fmt.Errorf("datasource %s: %w", ds.ID, apperrors.ErrCredentialsKeyMismatch)
		}
		return nil, fmt.Errorf("failed to decrypt datasource config: %w", err)
	}
	return &ds, nil
}

// Ensure datasourceRepository implements DatasourceRepository at compile time.
var _ DatasourceRepository = (*datasourceRepository)(nil)
