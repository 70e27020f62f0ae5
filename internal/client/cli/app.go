package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Worklog is the part of services.Repository the commands use.
type Worklog interface {
	ListTimeEntries(ctx context.Context) ([]models.TimeEntry, error)
	GetTimeEntry(ctx context.Context, date string) (*models.TimeEntry, error)
	TimeIn(ctx context.Context, date, clock string) (*models.TimeEntry, error)
	TimeOut(ctx context.Context, date, clock string) (*models.TimeEntry, error)
	GetDailyEntry(ctx context.Context, date string) (*models.DailyEntry, error)
	CreateTask(ctx context.Context, timeEntryID, description string) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	UploadPhoto(ctx context.Context, timeEntryID, filename, contentType string, data []byte) (*models.Photo, error)
	DeletePhoto(ctx context.Context, id string) error
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, patch models.SettingsPatch) (*models.Settings, error)
	SetThemeBestEffort(ctx context.Context, theme string) error
	PendingCount(ctx context.Context) (int, error)
}

// Session signs principals in and out.
type Session interface {
	CurrentPrincipalID() (string, error)
	SignIn(ctx context.Context, token string) (string, error)
	SignOut(ctx context.Context) error
}

// Syncer replays queued writes on demand.
type Syncer interface {
	ProcessQueue(ctx context.Context) (int, error)
}

// Connectivity reports and re-checks reachability of the remote store.
type Connectivity interface {
	IsOnline() bool
	Check(ctx context.Context) bool
}

// SeedStatus reports when the mirror was last seeded for a principal.
type SeedStatus interface {
	LastSeeded(ctx context.Context, owner string) (time.Time, bool)
}

// App is the interactive worklog client.
type App struct {
	worklog Worklog
	session Session
	syncer  Syncer
	net     Connectivity
	seeds   SeedStatus
	log     logging.Logger

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu   sync.Mutex
	mode Mode
}

func NewApp(w Worklog, s Session, syncer Syncer, net Connectivity, seeds SeedStatus, log logging.Logger) *App {
	mode := ModeOffline
	if net.IsOnline() {
		mode = ModeOnline
	}
	return &App{
		worklog: w,
		session: s,
		syncer:  syncer,
		net:     net,
		seeds:   seeds,
		log:     log.With("module", "cli"),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		now:     time.Now,
		mode:    mode,
	}
}

// Run starts the REPL and blocks until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to worklog (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// SetMode records a connectivity change and tells the user about it.
// It matches the callback shape of connectivity.Monitor.OnChange.
func (a *App) SetMode(online bool) {
	mode := ModeOffline
	if online {
		mode = ModeOnline
	}

	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		printlnFn("Switched to " + string(mode) + " mode")
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	_, err := a.session.CurrentPrincipalID()
	return err == nil
}
