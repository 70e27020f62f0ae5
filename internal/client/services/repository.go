package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/logging"
	"github.com/dmitrijs2005/worklog/internal/pubsub"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Connectivity reports whether the remote store is reachable.
type Connectivity interface {
	IsOnline() bool
}

// Repository is the read/write facade of the client. Reads prefer the
// remote store and refresh the mirror; writes land in the mirror first and
// are queued whenever the remote store cannot take them right away.
//
// Reads never fail for connectivity reasons and neither do writes: only
// common.ErrNotAuthenticated, common.ErrInvalidInput and local store errors
// reach the caller.
type Repository struct {
	store   *Store
	remote  remote.Gateway
	files   remote.Attachments
	net     Connectivity
	session Principal
	log     logging.Logger

	settingsGroup singleflight.Group
	background    sync.WaitGroup

	now   func() time.Time
	newID func() string
}

func NewRepository(store *Store, gw remote.Gateway, files remote.Attachments, net Connectivity,
	session Principal, log logging.Logger) *Repository {
	return &Repository{
		store:   store,
		remote:  gw,
		files:   files,
		net:     net,
		session: session,
		log:     log.With("module", "repository"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Close waits for background pushes started by best-effort writes.
func (r *Repository) Close() {
	r.background.Wait()
}

// PendingCount returns the number of the principal's writes waiting for
// replay.
func (r *Repository) PendingCount(ctx context.Context) (int, error) {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return 0, err
	}
	return r.store.PendingCount(ctx, owner)
}

// QueueSize publishes the pending write count whenever it changes.
func (r *Repository) QueueSize() *pubsub.Subject[int] {
	return r.store.QueueSize()
}

// direct reports whether a write touching ids may go straight to the
// remote store. Offline, or with older writes of the same rows still
// queued, it has to be queued behind them.
func (r *Repository) direct(ctx context.Context, owner string, ids ...string) bool {
	if !r.net.IsOnline() {
		return false
	}
	return !r.store.hasPending(ctx, owner, ids...)
}

// readRemote reports whether a read should try the remote store.
func (r *Repository) readRemote() bool {
	return r.net.IsOnline()
}

func (r *Repository) remoteFailed(ctx context.Context, op string, err error) {
	r.log.Warn(ctx, "remote call failed, using local mirror", "op", op, "error", err)
}
