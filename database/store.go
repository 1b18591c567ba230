package database

import (
	"context"
	"time"

	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/models"
)

var _ content.Store = (*Store)(nil)

// Store serves the content cache straight from Postgres.
type Store struct {
	db  Database
	now func() time.Time
}

func NewStore(db Database) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) FetchSettings(ctx context.Context) (*models.Settings, error) {
	return s.db.SettingsRepo().Find(ctx)
}

func (s *Store) FetchProjects(ctx context.Context) ([]models.Project, error) {
	return s.db.ProjectRepo().FindAll(ctx)
}

func (s *Store) UpdateSettings(ctx context.Context, id models.RowID, patch models.SettingsPatch) error {
	return s.db.SettingsRepo().Update(ctx, id, patch.Columns())
}

func (s *Store) InsertProject(ctx context.Context, p models.Project) (models.Project, error) {
	now := s.now().UTC()
	if p.CreatedAt == nil {
		p.CreatedAt = &now
	}
	if p.UpdatedAt == nil {
		p.UpdatedAt = &now
	}
	if err := s.db.ProjectRepo().Add(ctx, &p); err != nil {
		return models.Project{}, err
	}

	stored, err := s.db.ProjectRepo().FindByID(ctx, p.ID)
	if err != nil {
		return models.Project{}, err
	}
	return *stored, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) error {
	return s.db.ProjectRepo().Update(ctx, id, patch.Columns())
}

func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	return s.db.ProjectRepo().Delete(ctx, id)
}

func (s *Store) SetDisplayOrder(ctx context.Context, id string, order int) error {
	return s.db.ProjectRepo().SetDisplayOrder(ctx, id, order)
}
