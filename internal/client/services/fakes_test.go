package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/worklog/internal/client/connectivity"
	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/sqlitetest"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/logging"
	"github.com/stretchr/testify/require"
)

/*************
 * In-memory remote store
 *************/

// fakeGateway mimics the remote schema: it assigns its own IDs, keys time
// entries by (owner, date), settings by owner and child inserts by
// client_id.
type fakeGateway struct {
	mu sync.Mutex

	seq       int
	entries   map[string]models.TimeEntry
	tasks     map[string]models.Task
	photos    map[string]models.Photo
	settings  map[string]models.Settings
	clientIDs map[string]string

	failWith  error
	calls     map[string]int
	delay     time.Duration
	afterList func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		entries:   make(map[string]models.TimeEntry),
		tasks:     make(map[string]models.Task),
		photos:    make(map[string]models.Photo),
		settings:  make(map[string]models.Settings),
		clientIDs: make(map[string]string),
		calls:     make(map[string]int),
	}
}

// fail makes every following call return err; nil restores service.
func (g *fakeGateway) fail(err error) {
	g.mu.Lock()
	g.failWith = err
	g.mu.Unlock()
}

func (g *fakeGateway) enter(op string) error {
	g.mu.Lock()
	g.calls[op]++
	err, delay := g.failWith, g.delay
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

// onceAfterList runs fn once, after the next ListTimeEntries has read its
// rows and before it returns them.
func (g *fakeGateway) onceAfterList(fn func()) {
	g.mu.Lock()
	g.afterList = fn
	g.mu.Unlock()
}

func (g *fakeGateway) callCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *fakeGateway) nextID() string {
	g.seq++
	return fmt.Sprintf("srv-%d", g.seq)
}

func (g *fakeGateway) ownsEntry(owner, id string) bool {
	e, ok := g.entries[id]
	return ok && e.Owner == owner
}

func (g *fakeGateway) Ping(ctx context.Context) error {
	return g.enter("Ping")
}

func (g *fakeGateway) ListTimeEntries(ctx context.Context, owner string) ([]models.TimeEntry, error) {
	if err := g.enter("ListTimeEntries"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	rows, hook := g.entriesOf(owner), g.afterList
	g.afterList = nil
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	return rows, nil
}

func (g *fakeGateway) entriesOf(owner string) []models.TimeEntry {
	var out []models.TimeEntry
	for _, e := range g.entries {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func (g *fakeGateway) GetTimeEntry(ctx context.Context, owner, date string) (*models.TimeEntry, error) {
	if err := g.enter("GetTimeEntry"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entries {
		if e.Owner == owner && e.Date == date {
			return &e, nil
		}
	}
	return nil, remote.ErrNotFound
}

func (g *fakeGateway) UpsertTimeEntry(ctx context.Context, owner string, e models.TimeEntry) (*models.TimeEntry, error) {
	if err := g.enter("UpsertTimeEntry"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, cur := range g.entries {
		if cur.Owner == owner && cur.Date == e.Date {
			cur.TimeIn, cur.TimeOut, cur.HoursRendered = e.TimeIn, e.TimeOut, e.HoursRendered
			g.entries[id] = cur
			return &cur, nil
		}
	}
	e.ID = g.nextID()
	e.Owner = owner
	g.entries[e.ID] = e
	return &e, nil
}

func (g *fakeGateway) DeleteTimeEntry(ctx context.Context, owner, id string) error {
	if err := g.enter("DeleteTimeEntry"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.ownsEntry(owner, id) {
		return remote.ErrNotFound
	}
	delete(g.entries, id)
	for tid, t := range g.tasks {
		if t.TimeEntryID == id {
			delete(g.tasks, tid)
		}
	}
	for pid, p := range g.photos {
		if p.TimeEntryID == id {
			delete(g.photos, pid)
		}
	}
	return nil
}

func (g *fakeGateway) ListTasks(ctx context.Context, owner, timeEntryID string) ([]models.Task, error) {
	if err := g.enter("ListTasks"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tasksOf(owner, timeEntryID), nil
}

func (g *fakeGateway) ListAllTasks(ctx context.Context, owner string) ([]models.Task, error) {
	if err := g.enter("ListAllTasks"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tasksOf(owner, ""), nil
}

func (g *fakeGateway) tasksOf(owner, timeEntryID string) []models.Task {
	var out []models.Task
	for _, t := range g.tasks {
		if g.ownsEntry(owner, t.TimeEntryID) && (timeEntryID == "" || t.TimeEntryID == timeEntryID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (g *fakeGateway) InsertTask(ctx context.Context, owner string, t models.Task) (*models.Task, error) {
	if err := g.enter("InsertTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.clientIDs[t.ID]; ok {
		stored := g.tasks[id]
		return &stored, nil
	}
	if !g.ownsEntry(owner, t.TimeEntryID) {
		return nil, fmt.Errorf("%w: time entry %s is not visible", remote.ErrRejected, t.TimeEntryID)
	}
	client := t.ID
	t.ID = g.nextID()
	g.clientIDs[client] = t.ID
	g.tasks[t.ID] = t
	return &t, nil
}

func (g *fakeGateway) UpdateTask(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error) {
	if err := g.enter("UpdateTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tasks[id]
	if !ok || !g.ownsEntry(owner, t.TimeEntryID) {
		return nil, remote.ErrNotFound
	}
	patch.Apply(&t)
	g.tasks[id] = t
	return &t, nil
}

func (g *fakeGateway) DeleteTask(ctx context.Context, owner, id string) error {
	if err := g.enter("DeleteTask"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tasks[id]
	if !ok || !g.ownsEntry(owner, t.TimeEntryID) {
		return remote.ErrNotFound
	}
	delete(g.tasks, id)
	return nil
}

func (g *fakeGateway) ListPhotos(ctx context.Context, owner, timeEntryID string) ([]models.Photo, error) {
	if err := g.enter("ListPhotos"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.photosOf(owner, timeEntryID), nil
}

func (g *fakeGateway) ListAllPhotos(ctx context.Context, owner string) ([]models.Photo, error) {
	if err := g.enter("ListAllPhotos"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.photosOf(owner, ""), nil
}

func (g *fakeGateway) photosOf(owner, timeEntryID string) []models.Photo {
	var out []models.Photo
	for _, p := range g.photos {
		if g.ownsEntry(owner, p.TimeEntryID) && (timeEntryID == "" || p.TimeEntryID == timeEntryID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (g *fakeGateway) InsertPhoto(ctx context.Context, owner string, p models.Photo) (*models.Photo, error) {
	if err := g.enter("InsertPhoto"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.clientIDs[p.ID]; ok {
		stored := g.photos[id]
		stored.ImageURL = p.ImageURL
		g.photos[id] = stored
		return &stored, nil
	}
	if !g.ownsEntry(owner, p.TimeEntryID) {
		return nil, fmt.Errorf("%w: time entry %s is not visible", remote.ErrRejected, p.TimeEntryID)
	}
	client := p.ID
	p.ID = g.nextID()
	p.OfflinePayload, p.OfflineFilename = nil, nil
	g.clientIDs[client] = p.ID
	g.photos[p.ID] = p
	return &p, nil
}

func (g *fakeGateway) DeletePhoto(ctx context.Context, owner, id string) error {
	if err := g.enter("DeletePhoto"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.photos[id]
	if !ok || !g.ownsEntry(owner, p.TimeEntryID) {
		return remote.ErrNotFound
	}
	delete(g.photos, id)
	return nil
}

func (g *fakeGateway) GetSettings(ctx context.Context, owner string) (*models.Settings, error) {
	if err := g.enter("GetSettings"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.settings[owner]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &s, nil
}

func (g *fakeGateway) InsertSettings(ctx context.Context, owner string, s models.Settings) (*models.Settings, error) {
	if err := g.enter("InsertSettings"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.settings[owner]; ok {
		return &cur, nil
	}
	s.ID = g.nextID()
	s.Owner = owner
	g.settings[owner] = s
	return &s, nil
}

func (g *fakeGateway) UpsertSettings(ctx context.Context, owner string, s models.Settings) (*models.Settings, error) {
	if err := g.enter("UpsertSettings"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.settings[owner]; ok {
		s.ID = cur.ID
	} else {
		s.ID = g.nextID()
	}
	s.Owner = owner
	g.settings[owner] = s
	return &s, nil
}

func (g *fakeGateway) UpdateSettings(ctx context.Context, owner string, patch models.SettingsPatch) (*models.Settings, error) {
	if err := g.enter("UpdateSettings"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.settings[owner]
	if !ok {
		return nil, remote.ErrNotFound
	}
	patch.Apply(&s)
	g.settings[owner] = s
	return &s, nil
}

/*************
 * In-memory attachment store
 *************/

const fakeFilesBase = "https://files.test/photos/"

type fakeFiles struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failWith error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: make(map[string][]byte)}
}

func (f *fakeFiles) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.objects[path] = append([]byte(nil), data...)
	return nil
}

func (f *fakeFiles) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.objects, path)
	return nil
}

func (f *fakeFiles) PublicURL(path string) string {
	return fakeFilesBase + path
}

func (f *fakeFiles) PathFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, fakeFilesBase)
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

/*************
 * Principal
 *************/

type fakePrincipal struct {
	mu sync.Mutex
	id string
}

func (p *fakePrincipal) CurrentPrincipalID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.id == "" {
		return "", common.ErrNotAuthenticated
	}
	return p.id, nil
}

/*************
 * Wiring
 *************/

const testOwner = "user-1"

type testEnv struct {
	db      *sql.DB
	store   *Store
	gw      *fakeGateway
	files   *fakeFiles
	net     *connectivity.Monitor
	session *fakePrincipal
	repo    *Repository
	drainer *Drainer
}

func newTestEnv(t *testing.T, online bool) *testEnv {
	t.Helper()

	db := sqlitetest.Open(t)
	log := logging.NewNop()
	env := &testEnv{
		db:      db,
		store:   NewStore(db, repomanager.NewSQLiteRepositoryManager(), log),
		gw:      newFakeGateway(),
		files:   newFakeFiles(),
		net:     connectivity.NewMonitor(nil, time.Second, log),
		session: &fakePrincipal{id: testOwner},
	}
	env.net.Set(online)
	env.repo = NewRepository(env.store, env.gw, env.files, env.net, env.session, log)
	env.repo.now = steppingClock()
	env.drainer = NewDrainer(env.store, env.gw, env.files, env.net, env.session, DefaultMaxReplayAttempts, log)
	t.Cleanup(env.repo.Close)
	t.Cleanup(env.drainer.Wait)
	return env
}

func (e *testEnv) pending(t *testing.T) int {
	t.Helper()
	n, err := e.store.PendingCount(context.Background(), testOwner)
	require.NoError(t, err)
	return n
}

func (e *testEnv) queue(t *testing.T) []models.QueueEntry {
	t.Helper()
	list, err := e.store.repos.Queue(e.db).ListByOwner(context.Background(), testOwner)
	require.NoError(t, err)
	return list
}

func (e *testEnv) drain(t *testing.T) int {
	t.Helper()
	n, err := e.drainer.ProcessQueue(context.Background())
	require.NoError(t, err)
	return n
}

// steppingClock returns strictly increasing times so creation order is
// stable in listings.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func strp(s string) *string { return &s }
