package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/models"
	"github.com/rs/zerolog"
)

// fakeStore is an in-memory Store that counts calls.
type fakeStore struct {
	mu       sync.Mutex
	settings *models.Settings
	projects []models.Project

	settingsFetches int32
	projectFetches  int32

	fetchErr   error
	writeErr   error
	failOrder  string // SetDisplayOrder fails for this id
	orderCalls []string
	release    chan struct{} // when set, fetches block until closed
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: &models.Settings{ID: models.NumericRowID(1), SiteName: "Isabelle Portfolio", Tagline: "Old"},
		projects: []models.Project{
			{ID: "a", Title: "A", DisplayOrder: 0, Featured: true},
			{ID: "b", Title: "B", DisplayOrder: 1},
			{ID: "c", Title: "C", DisplayOrder: 2, Featured: true},
		},
	}
}

func (f *fakeStore) FetchSettings(ctx context.Context) (*models.Settings, error) {
	atomic.AddInt32(&f.settingsFetches, 1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.settings == nil {
		return nil, nil
	}
	s := f.settings.Clone()
	return &s, nil
}

func (f *fakeStore) FetchProjects(ctx context.Context) ([]models.Project, error) {
	atomic.AddInt32(&f.projectFetches, 1)
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]models.Project(nil), f.projects...), nil
}

func (f *fakeStore) UpdateSettings(ctx context.Context, id models.RowID, patch models.SettingsPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	merged := patch.ApplyTo(*f.settings)
	f.settings = &merged
	return nil
}

func (f *fakeStore) InsertProject(ctx context.Context, p models.Project) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return models.Project{}, f.writeErr
	}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.CreatedAt = &now
	p.UpdatedAt = &now
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeStore) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i := range f.projects {
		if f.projects[i].ID == id {
			f.projects[i] = patch.ApplyTo(f.projects[i])
		}
	}
	return nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return false, f.writeErr
	}
	return true, nil
}

func (f *fakeStore) SetDisplayOrder(ctx context.Context, id string, order int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failOrder {
		return errs.NewBackendError(errs.ErrUpdate, 500, "boom")
	}
	f.orderCalls = append(f.orderCalls, id)
	return nil
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(store Store) *Manager {
	return NewManager(store, WithLogger(zerolog.Nop()), WithClock(func() time.Time { return fixedNow }))
}

func loaded(t *testing.T, store *fakeStore) *Manager {
	t.Helper()
	m := newTestManager(store)
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}

func ids(projects []*models.Project) string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.ID
	}
	return strings.Join(out, ",")
}

func TestAccessorsBeforeLoad(t *testing.T) {
	m := newTestManager(newFakeStore())
	if m.Loaded() {
		t.Fatal("new manager should not be loaded")
	}
	if m.Settings() != nil {
		t.Error("settings should be nil before load")
	}
	if got := m.Projects(); got == nil || len(got) != 0 {
		t.Errorf("projects should be an empty list, got %v", got)
	}
	if m.ProjectByID("a") != nil {
		t.Error("lookup before load should be nil")
	}
	if _, err := m.UpdateSettings(context.Background(), models.SettingsPatch{}); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	ctx := context.Background()

	first, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	if store.settingsFetches != 1 || store.projectFetches != 1 {
		t.Errorf("expected one pair of fetches, got %d/%d", store.settingsFetches, store.projectFetches)
	}
	if first.Settings != second.Settings {
		t.Error("second load should return the identical settings pointer")
	}
	if len(first.Projects) != 3 || &first.Projects[0] != &second.Projects[0] {
		t.Error("second load should return the identical project list")
	}
	if m.Settings() != first.Settings {
		t.Error("accessor should return the cached pointer")
	}
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	store := newFakeStore()
	store.release = make(chan struct{})
	m := newTestManager(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Load(context.Background()); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	if n := atomic.LoadInt32(&store.projectFetches); n != 1 {
		t.Errorf("expected a single shared fetch, got %d", n)
	}
}

func TestLoadSurvivesFirstCallerCancel(t *testing.T) {
	store := newFakeStore()
	store.release = make(chan struct{})
	m := newTestManager(store)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := m.Load(ctx)
		first <- err
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := m.Load(context.Background())
		second <- err
	}()

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller: expected context.Canceled, got %v", err)
	}
	close(store.release)
	if err := <-second; err != nil {
		t.Fatalf("second caller: %v", err)
	}
	if !m.Loaded() {
		t.Error("cache should be loaded")
	}
	if n := atomic.LoadInt32(&store.projectFetches); n != 1 {
		t.Errorf("expected a single shared fetch, got %d", n)
	}
}

func TestFailedLoadCanRetry(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = errs.NewNetworkError("select", errors.New("offline"))
	m := newTestManager(store)

	if _, err := m.Load(context.Background()); !errs.IsNetworkError(err) {
		t.Fatalf("expected network error unchanged, got %v", err)
	}
	if m.Loaded() {
		t.Fatal("failed load must leave the cache not loaded")
	}

	store.fetchErr = nil
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !m.Loaded() || len(m.Projects()) != 3 {
		t.Error("retry should load content")
	}
}

func TestOnReady(t *testing.T) {
	m := newTestManager(newFakeStore())

	var before, after int
	m.OnReady(func(s Snapshot) { before = len(s.Projects) })
	if before != 0 {
		t.Fatal("hook ran before load")
	}

	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if before != 3 {
		t.Errorf("hook should run on load, got %d", before)
	}

	m.OnReady(func(s Snapshot) { after = len(s.Projects) })
	if after != 3 {
		t.Errorf("late hook should run immediately, got %d", after)
	}
}

func TestFeaturedProjects(t *testing.T) {
	store := newFakeStore()
	m := loaded(t, store)

	if got := ids(m.FeaturedProjects()); got != "a,c" {
		t.Errorf("flag filter: got %q", got)
	}

	list := []string{"c", "missing", "b", "c"}
	if _, err := m.UpdateSettings(context.Background(), models.SettingsPatch{FeaturedProjectIDs: &list}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if got := ids(m.FeaturedProjects()); got != "c,b" {
		t.Errorf("id list: got %q", got)
	}
}

func TestUpdateSettingsMergesWithoutRefetch(t *testing.T) {
	store := newFakeStore()
	m := loaded(t, store)
	before := m.Settings()

	tagline := "New"
	got, err := m.UpdateSettings(context.Background(), models.SettingsPatch{Tagline: &tagline})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.Settings().Tagline != "New" || got.Tagline != "New" {
		t.Errorf("tagline not merged: %+v", m.Settings())
	}
	if m.Settings().SiteName != "Isabelle Portfolio" {
		t.Errorf("other fields should be kept")
	}
	if m.Settings().UpdatedAt == nil || !m.Settings().UpdatedAt.Equal(fixedNow) {
		t.Errorf("updated_at should be stamped")
	}
	if before.Tagline != "Old" {
		t.Error("previously returned settings must not change")
	}
	if store.settingsFetches != 1 {
		t.Errorf("update must not refetch, got %d fetches", store.settingsFetches)
	}
}

func TestUpdateSettingsErrorLeavesCache(t *testing.T) {
	store := newFakeStore()
	m := loaded(t, store)
	store.writeErr = errs.NewBackendError(errs.ErrUpdate, 403, "permission denied")

	tagline := "New"
	_, err := m.UpdateSettings(context.Background(), models.SettingsPatch{Tagline: &tagline})
	if !errs.IsUpdateError(err) || err.Error() != "permission denied" {
		t.Fatalf("expected update error unchanged, got %v", err)
	}
	if m.Settings().Tagline != "Old" {
		t.Error("failed update must not touch the cache")
	}
}

func TestCreateProjectRoundTrip(t *testing.T) {
	m := loaded(t, newFakeStore())

	in := models.NewProject("The Last Light")
	in.Type = "Doc"
	in.Role = "Director"
	in.Awards = models.AwardList{{Name: "Best Short", Source: "Fest", Status: models.AwardWon}}

	created, err := m.CreateProject(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "the-last-light" {
		t.Errorf("id should be derived from title, got %q", created.ID)
	}
	if created.CreatedAt == nil {
		t.Error("server fields should be kept")
	}

	got := m.ProjectByID(created.ID)
	if got == nil {
		t.Fatal("created project not cached")
	}
	if got.Title != in.Title || got.Type != "Doc" || got.Role != "Director" || len(got.Awards) != 1 || got.Awards[0].Status != models.AwardWon {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.DisplayOrder != 3 {
		t.Errorf("new project should go last, got order %d", got.DisplayOrder)
	}
	if ids(m.Projects()) != "a,b,c,the-last-light" {
		t.Errorf("unexpected order %s", ids(m.Projects()))
	}
}

func TestCreateProjectExplicitOrder(t *testing.T) {
	m := loaded(t, newFakeStore())

	first := 0
	created, err := m.CreateProject(context.Background(), models.NewProject("First"), &first)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.DisplayOrder != 0 {
		t.Errorf("explicit order 0 replaced with %d", created.DisplayOrder)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	store := newFakeStore()
	m := loaded(t, store)
	ctx := context.Background()

	if _, err := m.CreateProject(ctx, models.Project{Title: "  "}, nil); !errs.IsMissingRequiredFieldError(err) {
		t.Errorf("expected missing title, got %v", err)
	}
	if _, err := m.CreateProject(ctx, models.Project{ID: "a", Title: "Dup"}, nil); !errs.IsInvalidFieldError(err) {
		t.Errorf("expected duplicate id rejection, got %v", err)
	}
	if _, err := m.CreateProject(ctx, models.Project{ID: "Bad Id", Title: "X"}, nil); !errs.IsInvalidFieldError(err) {
		t.Errorf("expected slug rejection, got %v", err)
	}
	if len(store.projects) != 3 {
		t.Errorf("rejected creates must not reach the store")
	}
}

func TestUpdateProject(t *testing.T) {
	m := loaded(t, newFakeStore())
	before := m.ProjectByID("b")

	title := "B2"
	got, err := m.UpdateProject(context.Background(), "b", models.ProjectPatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "B2" || m.ProjectByID("b").Title != "B2" {
		t.Errorf("title not merged")
	}
	if before.Title != "B" {
		t.Error("previously returned project must not change")
	}

	got, err = m.UpdateProject(context.Background(), "nope", models.ProjectPatch{Title: &title})
	if err != nil || got != nil {
		t.Errorf("uncached id should be a no-op merge, got %v %v", got, err)
	}
}

func TestDeleteProject(t *testing.T) {
	m := loaded(t, newFakeStore())

	ok, err := m.DeleteProject(context.Background(), "b")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	for _, p := range m.Projects() {
		if p.ID == "b" {
			t.Fatal("deleted project still cached")
		}
	}
	if m.ProjectByID("b") != nil {
		t.Error("lookup of deleted id should be nil")
	}
}

func TestReorderProjects(t *testing.T) {
	store := newFakeStore()
	m := loaded(t, store)

	if err := m.ReorderProjects(context.Background(), []string{"c", "a", "b"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := ids(m.Projects()); got != "c,a,b" {
		t.Errorf("expected c,a,b got %s", got)
	}
	if strings.Join(store.orderCalls, ",") != "c,a,b" {
		t.Errorf("updates should run in order, got %v", store.orderCalls)
	}
	for i, p := range m.Projects() {
		if p.DisplayOrder != i {
			t.Errorf("%s: display order %d, want %d", p.ID, p.DisplayOrder, i)
		}
	}
}

func TestReorderStopsAtFirstFailure(t *testing.T) {
	store := newFakeStore()
	store.failOrder = "a"
	m := loaded(t, store)

	err := m.ReorderProjects(context.Background(), []string{"c", "a", "b"})
	var rerr *ReorderError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReorderError, got %v", err)
	}
	if rerr.Updated != 1 || rerr.ID != "a" {
		t.Errorf("unexpected partial state %+v", rerr)
	}
	if !errs.IsUpdateError(err) {
		t.Error("underlying error should be preserved")
	}
	if strings.Join(store.orderCalls, ",") != "c" {
		t.Errorf("no writes after the failure, got %v", store.orderCalls)
	}
	if got := ids(m.Projects()); got != "a,b,c" {
		t.Errorf("cache should keep its order, got %s", got)
	}
}

func TestExportJSON(t *testing.T) {
	m := loaded(t, newFakeStore())

	var buf bytes.Buffer
	if err := m.ExportJSON(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"settings\"") {
		t.Errorf("export should be indented: %s", buf.String())
	}

	var doc struct {
		Settings   map[string]any   `json:"settings"`
		Projects   []map[string]any `json:"projects"`
		ExportedAt time.Time        `json:"exportedAt"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Settings["site_name"] != "Isabelle Portfolio" || len(doc.Projects) != 3 || !doc.ExportedAt.Equal(fixedNow) {
		t.Errorf("unexpected export %+v", doc)
	}

	want := "isabelle-portfolio-backup-" + "1717243200000" + ".json"
	if got := m.BackupFilename(); got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
