// Package content holds the in-memory copy of the site's settings and
// projects. It loads once per process and writes through to a Store,
// updating the cached copy after every successful write.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/models"
	"github.com/rpupo63/portfolio-site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrNotLoaded = errors.New("content not loaded")

// Snapshot is a consistent view of the cache. Settings is nil until a
// settings row has been loaded.
type Snapshot struct {
	Settings *models.Settings
	Projects []*models.Project
}

// Manager caches site content. Values it hands out are never modified
// afterwards: every write publishes new pointers, so readers may keep and
// share them without locking. Callers must not modify them either.
type Manager struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	load singleflight.Group

	mu       sync.RWMutex
	loaded   bool
	settings *models.Settings
	projects []*models.Project
	onReady  []func(Snapshot)
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: log.With().Str("component", "content").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load fetches settings and projects on the first successful call and
// returns the cached snapshot on every later one. Concurrent callers share
// a single fetch, which keeps running when the caller that started it gives
// up. A failed load leaves the cache empty so the next call tries again.
func (m *Manager) Load(ctx context.Context) (Snapshot, error) {
	if snap, ok := m.loadedSnapshot(); ok {
		return snap, nil
	}

	// The fetch outlives any one caller; each caller only stops waiting.
	ch := m.load.DoChan("load", func() (any, error) {
		if snap, ok := m.loadedSnapshot(); ok {
			return snap, nil
		}
		return m.fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

func (m *Manager) fetch(ctx context.Context) (Snapshot, error) {
	start := m.now()

	var (
		settings *models.Settings
		rows     []models.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = m.store.FetchSettings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = m.store.FetchProjects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to load content")
		return Snapshot{}, err
	}

	if settings != nil {
		s := settings.Clone()
		settings = &s
	} else {
		m.logger.Warn().Msg("No site settings row found")
	}
	projects := make([]*models.Project, 0, len(rows))
	for _, row := range rows {
		p := row.Normalize()
		projects = append(projects, &p)
	}

	m.mu.Lock()
	m.settings = settings
	m.projects = projects
	m.loaded = true
	hooks := m.onReady
	m.onReady = nil
	m.mu.Unlock()

	m.logger.Info().
		Int("projects", len(projects)).
		Dur("took", m.now().Sub(start)).
		Msg("Content loaded")

	snap := Snapshot{Settings: settings, Projects: projects}
	for _, fn := range hooks {
		fn(snap)
	}
	return snap, nil
}

func (m *Manager) loadedSnapshot() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Settings: m.settings, Projects: m.projects}, m.loaded
}

func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// OnReady registers fn to run once content has loaded. If it already has,
// fn runs immediately on the calling goroutine.
func (m *Manager) OnReady(fn func(Snapshot)) {
	m.mu.Lock()
	if !m.loaded {
		m.onReady = append(m.onReady, fn)
		m.mu.Unlock()
		return
	}
	snap := Snapshot{Settings: m.settings, Projects: m.projects}
	m.mu.Unlock()
	fn(snap)
}

// Settings returns the cached settings, or nil before load.
func (m *Manager) Settings() *models.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Projects returns the cached projects in display order, or an empty list
// before load.
func (m *Manager) Projects() []*models.Project {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.projects == nil {
		return []*models.Project{}
	}
	return m.projects
}

// FeaturedProjects resolves settings.featured_project_ids in order when the
// list is set, skipping ids that no longer exist. Otherwise it returns the
// projects flagged as featured in cache order.
func (m *Manager) FeaturedProjects() []*models.Project {
	m.mu.RLock()
	settings, projects := m.settings, m.projects
	m.mu.RUnlock()

	featured := []*models.Project{}
	if settings != nil && len(settings.FeaturedProjectIDs) > 0 {
		byID := make(map[string]*models.Project, len(projects))
		for _, p := range projects {
			byID[p.ID] = p
		}
		seen := make(map[string]bool, len(settings.FeaturedProjectIDs))
		for _, id := range settings.FeaturedProjectIDs {
			if p, ok := byID[id]; ok && !seen[id] {
				seen[id] = true
				featured = append(featured, p)
			}
		}
		return featured
	}

	for _, p := range projects {
		if p.Featured {
			featured = append(featured, p)
		}
	}
	return featured
}

// ProjectByID returns nil when no cached project has id.
func (m *Manager) ProjectByID(id string) *models.Project {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, p := indexOf(m.projects, id)
	return p
}

func indexOf(projects []*models.Project, id string) (int, *models.Project) {
	for i, p := range projects {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// UpdateSettings writes patch to the settings row and merges it into the
// cached settings.
func (m *Manager) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (*models.Settings, error) {
	m.mu.RLock()
	loaded, current := m.loaded, m.settings
	m.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}
	if current == nil {
		return nil, errs.NewNotFound("site settings")
	}

	now := m.now().UTC()
	patch.UpdatedAt = &now
	if err := m.store.UpdateSettings(ctx, current.ID, patch); err != nil {
		m.logger.Error().Err(err).Msg("Failed to update settings")
		return nil, err
	}

	m.mu.Lock()
	merged := patch.ApplyTo(*m.settings)
	m.settings = &merged
	m.mu.Unlock()

	m.logger.Info().Interface("fields", keys(patch.Columns())).Msg("Settings updated")
	return &merged, nil
}

// CreateProject inserts p and appends the stored row to the cache. The id
// is derived from the title when empty and must not already be cached.
// order sets p's display order; nil places it after the cached projects.
func (m *Manager) CreateProject(ctx context.Context, p models.Project, order *int) (*models.Project, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, errs.NewMissingRequiredFieldError("title")
	}
	if p.ID == "" {
		p.ID = services.GenerateSlug(p.Title)
	}
	if p.ID == "" || services.GenerateSlug(p.ID) != p.ID {
		return nil, errs.NewInvalidFieldError("id", "must be a lowercase slug of letters, digits and dashes")
	}

	m.mu.RLock()
	_, existing := indexOf(m.projects, p.ID)
	count := len(m.projects)
	m.mu.RUnlock()
	if existing != nil {
		return nil, errs.NewInvalidFieldError("id", fmt.Sprintf("a project with id %q already exists", p.ID))
	}
	p.DisplayOrder = count
	if order != nil {
		p.DisplayOrder = *order
	}

	created, err := m.store.InsertProject(ctx, p.Normalize())
	if err != nil {
		m.logger.Error().Err(err).Str("projectID", p.ID).Msg("Failed to create project")
		return nil, err
	}
	created = created.Normalize()

	m.mu.Lock()
	next := make([]*models.Project, len(m.projects), len(m.projects)+1)
	copy(next, m.projects)
	m.projects = append(next, &created)
	m.mu.Unlock()

	m.logger.Info().Str("projectID", created.ID).Msg("Project created")
	return &created, nil
}

// UpdateProject writes patch to project id and merges it into the cached
// entry. The write is attempted even if id is not cached; the result is nil
// in that case.
func (m *Manager) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	now := m.now().UTC()
	patch.UpdatedAt = &now
	if err := m.store.UpdateProject(ctx, id, patch); err != nil {
		m.logger.Error().Err(err).Str("projectID", id).Msg("Failed to update project")
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i, current := indexOf(m.projects, id)
	if current == nil {
		m.logger.Warn().Str("projectID", id).Msg("Updated project is not cached")
		return nil, nil
	}
	merged := patch.ApplyTo(*current)
	next := make([]*models.Project, len(m.projects))
	copy(next, m.projects)
	next[i] = &merged
	m.projects = next

	m.logger.Info().Str("projectID", id).Msg("Project updated")
	return &merged, nil
}

// DeleteProject deletes project id remotely, then drops it from the cache.
func (m *Manager) DeleteProject(ctx context.Context, id string) (bool, error) {
	ok, err := m.store.DeleteProject(ctx, id)
	if err != nil {
		m.logger.Error().Err(err).Str("projectID", id).Msg("Failed to delete project")
		return false, err
	}

	m.mu.Lock()
	next := make([]*models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		if p.ID != id {
			next = append(next, p)
		}
	}
	m.projects = next
	m.mu.Unlock()

	m.logger.Info().Str("projectID", id).Msg("Project deleted")
	return ok, nil
}

// ReorderError reports a reorder that stopped partway. The first Updated
// ids already carry their new display order; nothing is rolled back.
type ReorderError struct {
	Updated int
	Total   int
	ID      string
	Err     error
}

func (e *ReorderError) Error() string {
	return fmt.Sprintf("reorder stopped at %q after %d of %d updates: %v", e.ID, e.Updated, e.Total, e.Err)
}

func (e *ReorderError) Unwrap() error {
	return e.Err
}

// ReorderProjects sets each project's display order to its position in ids,
// one write at a time. The cache is re-sorted only when every write
// succeeded; projects missing from ids sort first.
func (m *Manager) ReorderProjects(ctx context.Context, ids []string) error {
	for i, id := range ids {
		if err := m.store.SetDisplayOrder(ctx, id, i); err != nil {
			rerr := &ReorderError{Updated: i, Total: len(ids), ID: id, Err: err}
			m.logger.Error().Err(err).Int("updated", i).Int("total", len(ids)).Msg("Failed to reorder projects")
			return rerr
		}
	}

	position := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := position[id]; !dup {
			position[id] = i
		}
	}
	rank := func(id string) int {
		if i, ok := position[id]; ok {
			return i
		}
		return -1
	}

	m.mu.Lock()
	next := make([]*models.Project, len(m.projects))
	for i, p := range m.projects {
		if pos, ok := position[p.ID]; ok && p.DisplayOrder != pos {
			updated := p.Clone()
			updated.DisplayOrder = pos
			p = &updated
		}
		next[i] = p
	}
	sort.SliceStable(next, func(a, b int) bool {
		return rank(next[a].ID) < rank(next[b].ID)
	})
	m.projects = next
	m.mu.Unlock()

	m.logger.Info().Int("projects", len(ids)).Msg("Projects reordered")
	return nil
}

func keys(cols map[string]any) []string {
	out := make([]string, 0, len(cols))
	for k := range cols {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
