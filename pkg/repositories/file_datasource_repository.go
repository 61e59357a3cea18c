package repositories

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// sourcesNamespace derives stable ids for file entries that declare none.
var sourcesNamespace = uuid.MustParse("6f1c2a9e-2f5b-4d6b-9a57-0f6f3b1f9c21")

// sourcesFile is the YAML layout read by FileDatasourceRepository.
//
//	project_id: 7d9f...
//	datasources:
//	  - name: analytics
//	    type: sqlite
//	    config:
//	      path: ./analytics.db
type sourcesFile struct {
	ProjectID   uuid.UUID           `yaml:"project_id"`
	Datasources []models.Datasource `yaml:"datasources"`
}

// FileDatasourceRepository serves data sources declared in a YAML file with
// plaintext configs. Used by the command line tool where no metadata
// database is available.
type FileDatasourceRepository struct {
	projectID uuid.UUID
	byID      map[uuid.UUID]*models.Datasource
	order     []uuid.UUID
}

// LoadFileDatasourceRepository reads the sources file at path.
func LoadFileDatasourceRepository(path string) (*FileDatasourceRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseFileDatasourceRepository(raw)
}

// ParseFileDatasourceRepository parses sources file content.
func ParseFileDatasourceRepository(raw []byte) (*FileDatasourceRepository, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	repo := &FileDatasourceRepository{
		projectID: f.ProjectID,
		byID:      make(map[uuid.UUID]*models.Datasource, len(f.Datasources)),
	}
	names := make(map[string]bool, len(f.Datasources))

	for i := range f.Datasources {
		ds := f.Datasources[i]
		ds.Name = strings.TrimSpace(ds.Name)
		if ds.Name == "" {
			return nil, fmt.Errorf("datasource #%d: name is required", i+1)
		}
		if ds.DatasourceType == "" {
			return nil, fmt.Errorf("datasource %q: type is required", ds.Name)
		}
		if names[ds.Name] {
			return nil, fmt.Errorf("datasource %q: %w", ds.Name, apperrors.ErrConflict)
		}
		names[ds.Name] = true

		if ds.ID == uuid.Nil {
			ds.ID = uuid.NewSHA1(sourcesNamespace, []byte(ds.Name))
		}
		if _, dup := repo.byID[ds.ID]; dup {
			return nil, fmt.Errorf("datasource id %s: %w", ds.ID, apperrors.ErrConflict)
		}
		ds.ProjectID = f.ProjectID
		if ds.Config == nil {
			ds.Config = map[string]any{}
		}

		repo.byID[ds.ID] = &ds
		repo.order = append(repo.order, ds.ID)
	}

	return repo, nil
}

// ProjectID returns the project declared by the file, or uuid.Nil.
func (r *FileDatasourceRepository) ProjectID() uuid.UUID {
	return r.projectID
}

// Get returns the data source with the given id. A file without a project_id
// serves every project.
func (r *FileDatasourceRepository) Get(_ context.Context, projectID, id uuid.UUID) (*models.Datasource, error) {
	ds, ok := r.byID[id]
	if !ok || (r.projectID != uuid.Nil && projectID != r.projectID) {
		return nil, fmt.Errorf("datasource %s: %w", id, apperrors.ErrNotFound)
	}
	clone := *ds
	return &clone, nil
}

// List returns the data sources in file order.
func (r *FileDatasourceRepository) List(_ context.Context, _ uuid.UUID) ([]*models.Datasource, error) {
	out := make([]*models.Datasource, 0, len(r.order))
	for _, id := range r.order {
		clone := *r.byID[id]
		out = append(out, &clone)
	}
	return out, nil
}

// Resolve maps each reference, a data source id or name, to its id.
func (r *FileDatasourceRepository) Resolve(refs []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if id, err := uuid.Parse(ref); err == nil {
			if _, ok := r.byID[id]; ok {
				ids = append(ids, id)
				continue
			}
		}
		id, ok := r.idByName(ref)
		if !ok {
			return nil, fmt.Errorf("datasource %q: %w", ref, apperrors.ErrNotFound)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *FileDatasourceRepository) idByName(name string) (uuid.UUID, bool) {
	for _, id := range r.order {
		if r.byID[id].Name == name {
			return id, true
		}
	}
	return uuid.Nil, false
}
