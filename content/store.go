package content

import (
	"context"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/models"
	"github.com/rpupo63/portfolio-site-backend/supabase"
)

const (
	settingsTable = "site_settings"
	projectsTable = "projects"
)

// Store is the backend the cache reads from and writes through.
// FetchProjects returns rows ordered by display order. FetchSettings
// returns nil when the settings row does not exist.
type Store interface {
	FetchSettings(ctx context.Context) (*models.Settings, error)
	FetchProjects(ctx context.Context) ([]models.Project, error)
	UpdateSettings(ctx context.Context, id models.RowID, patch models.SettingsPatch) error
	InsertProject(ctx context.Context, p models.Project) (models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) error
	DeleteProject(ctx context.Context, id string) (bool, error)
	SetDisplayOrder(ctx context.Context, id string, order int) error
}

// RESTStore keeps content in the hosted backend's site_settings and
// projects tables.
type RESTStore struct {
	client *supabase.Client
}

func NewRESTStore(client *supabase.Client) *RESTStore {
	return &RESTStore{client: client}
}

func (s *RESTStore) FetchSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	found, err := s.client.SelectSingle(ctx, settingsTable, supabase.Query{}, &settings)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

func (s *RESTStore) FetchProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := s.client.Select(ctx, projectsTable, supabase.Query{Order: "display_order.asc"}, &projects)
	return projects, err
}

func (s *RESTStore) UpdateSettings(ctx context.Context, id models.RowID, patch models.SettingsPatch) error {
	return s.client.Update(ctx, settingsTable, patch.Columns(), supabase.Match{"id": id.String()}, nil)
}

func (s *RESTStore) InsertProject(ctx context.Context, p models.Project) (models.Project, error) {
	var rows []models.Project
	if err := s.client.Insert(ctx, projectsTable, p, &rows); err != nil {
		return models.Project{}, err
	}
	if len(rows) == 0 {
		return models.Project{}, errs.NewBackendError(errs.ErrInsert, 0, "Insert returned no rows")
	}
	return rows[0], nil
}

func (s *RESTStore) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) error {
	return s.client.Update(ctx, projectsTable, patch.Columns(), supabase.Match{"id": id}, nil)
}

func (s *RESTStore) DeleteProject(ctx context.Context, id string) (bool, error) {
	return s.client.Delete(ctx, projectsTable, supabase.Match{"id": id})
}

func (s *RESTStore) SetDisplayOrder(ctx context.Context, id string, order int) error {
	return s.client.Update(ctx, projectsTable, map[string]any{"display_order": order}, supabase.Match{"id": id}, nil)
}
