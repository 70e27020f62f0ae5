package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
	"github.com/dmitrijs2005/worklog/internal/logging"
	"golang.org/x/sync/errgroup"
)

// SessionSource publishes sign-in and sign-out events.
type SessionSource interface {
	Principal
	OnSessionEvent(fn func(SessionEvent)) (unsubscribe func())
}

// Bootstrapper pulls the principal's data into the mirror once per
// session. A sign-in while offline is seeded on the next online edge.
type Bootstrapper struct {
	store   *Store
	remote  remote.Gateway
	net     Connectivity
	session Principal
	log     logging.Logger

	mu     sync.Mutex
	seeded map[string]bool
	async  sync.WaitGroup
	now    func() time.Time
}

func NewBootstrapper(store *Store, gw remote.Gateway, net Connectivity, session Principal, log logging.Logger) *Bootstrapper {
	return &Bootstrapper{
		store:   store,
		remote:  gw,
		net:     net,
		session: session,
		log:     log.With("module", "bootstrap"),
		seeded:  make(map[string]bool),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// seedAttempts bounds how often Seed refetches a snapshot that went stale
// while it was being fetched.
const seedAttempts = 3

type snapshot struct {
	gen      uint64
	entries  []models.TimeEntry
	tasks    []models.Task
	photos   []models.Photo
	settings *models.Settings
}

// Seed replaces the principal's mirror rows with the remote ones, unless
// this session is already seeded or the client is offline. It reports
// whether seeding ran.
func (b *Bootstrapper) Seed(ctx context.Context) (bool, error) {
	owner, err := b.session.CurrentPrincipalID()
	if err != nil {
		return false, err
	}
	if !b.net.IsOnline() {
		return false, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seeded[owner] {
		return false, nil
	}

	var snap *snapshot
	for attempt := 1; ; attempt++ {
		snap, err = b.fetch(ctx, owner)
		if err != nil {
			return false, fmt.Errorf("seed fetch: %w", err)
		}
		err = b.replace(ctx, owner, snap)
		if err == nil {
			break
		}
		if !errors.Is(err, errStaleSnapshot) || attempt == seedAttempts {
			return false, fmt.Errorf("seed mirror: %w", err)
		}
		b.log.Debug(ctx, "mirror changed during seed fetch, refetching", "attempt", attempt)
	}

	b.seeded[owner] = true
	b.log.Info(ctx, "mirror seeded", "principal", owner,
		"time_entries", len(snap.entries), "tasks", len(snap.tasks), "photos", len(snap.photos))
	return true, nil
}

func (b *Bootstrapper) fetch(ctx context.Context, owner string) (*snapshot, error) {
	snap := snapshot{gen: b.store.generation()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.entries, err = b.remote.ListTimeEntries(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.tasks, err = b.remote.ListAllTasks(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.photos, err = b.remote.ListAllPhotos(gctx, owner)
		return err
	})
	g.Go(func() error {
		s, err := b.remote.GetSettings(gctx, owner)
		if errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		snap.settings = s
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// replace swaps the owner's rows in one transaction. Rows with queued
// writes are kept and win over their remote versions. A snapshot taken
// before the mirror last changed is refused with errStaleSnapshot.
func (b *Bootstrapper) replace(ctx context.Context, owner string, snap *snapshot) error {
	return dbx.WithTx(ctx, b.store.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := b.store.checkFresh(snap.gen); err != nil {
			return err
		}
		repos := b.store.repos
		pending, err := repos.Queue(tx).PendingRowIDs(ctx, owner)
		if err != nil {
			return err
		}

		// Children first: their owner is resolved through the parent.
		if err := repos.Tasks(tx).DeleteByOwnerExcept(ctx, owner, pending); err != nil {
			return err
		}
		if err := repos.Photos(tx).DeleteByOwnerExcept(ctx, owner, pending); err != nil {
			return err
		}
		if err := repos.TimeEntries(tx).DeleteByOwnerExcept(ctx, owner, pending); err != nil {
			return err
		}

		for i := range snap.entries {
			if _, err := repos.TimeEntries(tx).InsertIgnore(ctx, &snap.entries[i]); err != nil {
				return err
			}
		}
		for i := range snap.tasks {
			if _, err := repos.Tasks(tx).InsertIgnore(ctx, &snap.tasks[i]); err != nil {
				return err
			}
		}
		for i := range snap.photos {
			if _, err := repos.Photos(tx).InsertIgnore(ctx, &snap.photos[i]); err != nil {
				return err
			}
		}

		if err := b.replaceSettings(ctx, tx, owner, snap.settings, pending); err != nil {
			return err
		}
		return repos.Metadata(tx).SetTime(ctx, metadata.KeySeededPrefix+owner, b.now())
	})
}

func (b *Bootstrapper) replaceSettings(ctx context.Context, tx dbx.DBTX, owner string, s *models.Settings, pending []string) error {
	settings := b.store.repos.Settings(tx)
	local, err := settings.GetByOwner(ctx, owner)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return err
	case slices.Contains(pending, local.ID):
		return nil
	}

	if err := settings.DeleteByOwner(ctx, owner); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	_, err = settings.InsertIgnore(ctx, s)
	return err
}

// LastSeeded returns when the principal's mirror was last seeded.
func (b *Bootstrapper) LastSeeded(ctx context.Context, owner string) (time.Time, bool) {
	t, err := b.store.repos.Metadata(b.store.db).GetTime(ctx, metadata.KeySeededPrefix+owner)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Reset forgets that owner was seeded in this session.
func (b *Bootstrapper) Reset(owner string) {
	b.mu.Lock()
	delete(b.seeded, owner)
	b.mu.Unlock()
}

// Watch seeds in the background after every sign-in and on every online
// edge, and resets on sign-out. The returned function unsubscribes both.
func (b *Bootstrapper) Watch(sessions SessionSource, net ConnectivitySource) (unsubscribe func()) {
	unsubSession := sessions.OnSessionEvent(func(ev SessionEvent) {
		switch ev.Kind {
		case SignedIn:
			b.seedAsync()
		case SignedOut:
			b.Reset(ev.PrincipalID)
		}
	})
	unsubNet := net.OnChange(func(online bool) {
		if online {
			b.seedAsync()
		}
	})
	return func() {
		unsubSession()
		unsubNet()
	}
}

func (b *Bootstrapper) seedAsync() {
	b.async.Add(1)
	go func() {
		defer b.async.Done()
		ctx := context.Background()
		if _, err := b.Seed(ctx); err != nil && !errors.Is(err, common.ErrNotAuthenticated) {
			b.log.Warn(ctx, "seeding failed, will retry when back online", "error", err)
		}
	}()
}

// Wait blocks until background seeding has finished.
func (b *Bootstrapper) Wait() {
	b.async.Wait()
}
