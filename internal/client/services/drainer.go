package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
	"github.com/dmitrijs2005/worklog/internal/logging"
)

// ErrDrainInProgress is returned when a drain is triggered while another
// one runs. The trigger is dropped, not queued.
var ErrDrainInProgress = errors.New("queue drain already in progress")

// DefaultMaxReplayAttempts is how many rejections an entry survives before
// it is moved to the dead letter table.
const DefaultMaxReplayAttempts = 5

// ConnectivitySource publishes online/offline transitions.
type ConnectivitySource interface {
	Connectivity
	OnChange(fn func(online bool)) (unsubscribe func())
}

// Drainer replays queued writes against the remote store, one entry at a
// time in queue order.
type Drainer struct {
	store       *Store
	remote      remote.Gateway
	files       remote.Attachments
	net         Connectivity
	session     Principal
	maxAttempts int
	log         logging.Logger

	busy  atomic.Bool
	async sync.WaitGroup
}

// NewDrainer returns a Drainer. maxAttempts of 0 retries rejected entries
// forever.
func NewDrainer(store *Store, gw remote.Gateway, files remote.Attachments, net Connectivity, session Principal,
	maxAttempts int, log logging.Logger) *Drainer {
	return &Drainer{
		store:       store,
		remote:      gw,
		files:       files,
		net:         net,
		session:     session,
		maxAttempts: maxAttempts,
		log:         log.With("module", "drainer"),
	}
}

// ProcessQueue replays the principal's queued writes and returns how many
// succeeded. Failed entries stay queued for the next drain. Offline it does
// nothing.
func (d *Drainer) ProcessQueue(ctx context.Context) (int, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return 0, ErrDrainInProgress
	}
	defer d.busy.Store(false)

	if !d.net.IsOnline() {
		return 0, nil
	}
	owner, err := d.session.CurrentPrincipalID()
	if err != nil {
		return 0, err
	}

	replayed, failed := 0, 0
	var last int64
	for {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}

		// Earlier replays may rewrite later entries, so each one is read
		// fresh.
		e, err := d.next(ctx, owner, last)
		if err != nil {
			return replayed, err
		}
		if e == nil {
			break
		}
		last = e.QueueID

		if err := d.replay(ctx, owner, e); err != nil {
			failed++
			d.fail(ctx, e, err)
			continue
		}
		replayed++
		d.store.publishQueueSize(ctx, owner)
	}

	if replayed > 0 || failed > 0 {
		d.log.Info(ctx, "queue drained", "replayed", replayed, "failed", failed)
	}
	return replayed, nil
}

func (d *Drainer) next(ctx context.Context, owner string, after int64) (*models.QueueEntry, error) {
	e, err := d.store.repos.Queue(d.store.db).NextAfter(ctx, owner, after)
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	return e, nil
}

// fail keeps the entry for the next drain. Rejections count towards the
// attempt limit; unavailability does not. Entries that cannot be decoded
// are set aside at once.
func (d *Drainer) fail(ctx context.Context, e *models.QueueEntry, cause error) {
	log := d.log.With("queue_id", e.QueueID, "collection", e.Collection, "operation", e.Operation, "row_id", e.RowID)
	q := d.store.repos.Queue(d.store.db)

	switch {
	case errors.Is(cause, common.ErrLocalStoreCorruption):
		log.Error(ctx, "undecodable queue entry moved to dead letters", "error", cause)
		d.deadLetter(ctx, log, e)

	case errors.Is(cause, remote.ErrRejected):
		attempts, err := q.RecordFailure(ctx, e.QueueID, cause.Error())
		if err != nil {
			log.Error(ctx, "replay failure not recorded", "error", err)
			return
		}
		if d.maxAttempts > 0 && attempts >= d.maxAttempts {
			log.Error(ctx, "rejected queue entry moved to dead letters", "attempts", attempts, "error", cause)
			d.deadLetter(ctx, log, e)
			return
		}
		log.Warn(ctx, "replay rejected", "attempts", attempts, "error", cause)

	default:
		log.Warn(ctx, "replay failed, will retry", "error", cause)
	}
}

func (d *Drainer) deadLetter(ctx context.Context, log logging.Logger, e *models.QueueEntry) {
	if err := d.store.repos.Queue(d.store.db).MoveToDeadLetter(ctx, e.QueueID); err != nil {
		log.Error(ctx, "dead letter move failed", "error", err)
		return
	}
	d.store.publishQueueSize(ctx, e.Owner)
}

func (d *Drainer) replay(ctx context.Context, owner string, e *models.QueueEntry) error {
	p, err := e.Decode()
	if err != nil {
		return err
	}

	switch v := p.(type) {
	case *models.TimeEntryUpsert:
		stored, err := d.remote.UpsertTimeEntry(ctx, owner, v.Entry)
		if err != nil {
			return err
		}
		return d.settle(ctx, owner, e, stored.ID, func(ctx context.Context, tx dbx.DBTX) error {
			entries := d.store.repos.TimeEntries(tx)
			return putIfPresent(func() error { _, err := entries.GetByID(ctx, stored.ID); return err },
				func() error { return entries.Put(ctx, stored) })
		})

	case *models.TimeEntryDelete:
		if err := d.ignoreNotFound(ctx, e, d.remote.DeleteTimeEntry(ctx, owner, e.RowID)); err != nil {
			return err
		}
		d.removeObjects(ctx, v.PhotoPaths...)
		return d.settle(ctx, owner, e, "", nil)

	case *models.TaskInsert:
		stored, err := d.remote.InsertTask(ctx, owner, v.Task)
		if err != nil {
			return err
		}
		return d.settle(ctx, owner, e, stored.ID, func(ctx context.Context, tx dbx.DBTX) error {
			tasks := d.store.repos.Tasks(tx)
			return putIfPresent(func() error { _, err := tasks.GetByID(ctx, stored.ID); return err },
				func() error { return tasks.Put(ctx, stored) })
		})

	case *models.TaskUpdate:
		_, err := d.remote.UpdateTask(ctx, owner, e.RowID, v.Patch)
		if err := d.ignoreNotFound(ctx, e, err); err != nil {
			return err
		}
		return d.settle(ctx, owner, e, "", nil)

	case *models.TaskDelete:
		if err := d.ignoreNotFound(ctx, e, d.remote.DeleteTask(ctx, owner, e.RowID)); err != nil {
			return err
		}
		return d.settle(ctx, owner, e, "", nil)

	case *models.PhotoInsert:
		return d.replayPhotoInsert(ctx, owner, e, v)

	case *models.PhotoDelete:
		if err := d.ignoreNotFound(ctx, e, d.remote.DeletePhoto(ctx, owner, e.RowID)); err != nil {
			return err
		}
		if v.StoragePath != "" {
			d.removeObjects(ctx, v.StoragePath)
		}
		return d.settle(ctx, owner, e, "", nil)

	case *models.SettingsUpsert:
		stored, err := d.remote.UpsertSettings(ctx, owner, v.Settings)
		if err != nil {
			return err
		}
		return d.settle(ctx, owner, e, stored.ID, func(ctx context.Context, tx dbx.DBTX) error {
			settings := d.store.repos.Settings(tx)
			return putIfPresent(func() error { _, err := settings.GetByOwner(ctx, owner); return err },
				func() error { return settings.Put(ctx, stored) })
		})

	case *models.SettingsUpdate:
		_, err := d.remote.UpdateSettings(ctx, owner, v.Patch)
		if err := d.ignoreNotFound(ctx, e, err); err != nil {
			return err
		}
		return d.settle(ctx, owner, e, "", nil)
	}

	return fmt.Errorf("%w: no replay for %s", common.ErrLocalStoreCorruption, p.Kind())
}

// replayPhotoInsert uploads the binary kept in the mirror row. A row that
// is gone was deleted locally after capture, so there is nothing to send.
func (d *Drainer) replayPhotoInsert(ctx context.Context, owner string, e *models.QueueEntry, v *models.PhotoInsert) error {
	row, err := d.store.repos.Photos(d.store.db).GetByID(ctx, e.RowID)
	if errors.Is(err, common.ErrNotFound) {
		d.log.Debug(ctx, "photo deleted before upload", "row_id", e.RowID)
		return d.settle(ctx, owner, e, "", nil)
	}
	if err != nil {
		return fmt.Errorf("get local photo: %w", err)
	}

	filename := v.Filename
	if filename == "" && row.OfflineFilename != nil {
		filename = *row.OfflineFilename
	}

	var stored *models.Photo
	if row.PendingUpload() {
		contentType, data, err := models.DecodeDataURL(*row.OfflinePayload)
		if err != nil {
			return err
		}
		stored, err = pushPhoto(ctx, d.remote, d.files, owner, *row, filename, contentType, data)
		if err != nil {
			return err
		}
	} else {
		stored, err = d.remote.InsertPhoto(ctx, owner, *row)
		if err != nil {
			return err
		}
	}

	return d.settle(ctx, owner, e, stored.ID, func(ctx context.Context, tx dbx.DBTX) error {
		err := d.store.repos.Photos(tx).MarkUploaded(ctx, stored.ID, stored.ImageURL)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	})
}

// settle commits a replayed entry: it renames the local row when the
// remote store assigned a new ID, removes the entry from the queue and
// stores the remote row, all in one transaction. The remote row is not
// stored while newer writes of it are still queued.
func (d *Drainer) settle(ctx context.Context, owner string, e *models.QueueEntry, remoteID string,
	save func(ctx context.Context, tx dbx.DBTX) error) error {

	return d.store.confirm(ctx, owner, e.Collection, e.RowID, remoteID, func(ctx context.Context, tx dbx.DBTX) error {
		q := d.store.repos.Queue(tx)
		if err := q.Delete(ctx, e.QueueID); err != nil {
			return err
		}
		if save == nil {
			return nil
		}

		id := e.RowID
		if remoteID != "" {
			id = remoteID
		}
		pending, err := q.HasPending(ctx, owner, id)
		if err != nil || pending {
			return err
		}
		return save(ctx, tx)
	})
}

// ignoreNotFound treats a missing remote row as success: a delete already
// happened, and an update lost to a delete made elsewhere.
func (d *Drainer) ignoreNotFound(ctx context.Context, e *models.QueueEntry, err error) error {
	if !errors.Is(err, remote.ErrNotFound) {
		return err
	}
	if e.Operation == models.OpUpdate {
		d.log.Warn(ctx, "update target gone remotely, dropping", "collection", e.Collection, "row_id", e.RowID)
	}
	return nil
}

func (d *Drainer) removeObjects(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if err := d.files.Remove(ctx, p); err != nil {
			d.log.Warn(ctx, "photo object not removed", "path", p, "error", err)
		}
	}
}

func putIfPresent(get, put func() error) error {
	err := get()
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return put()
}

// WatchConnectivity starts one background drain on every offline to online
// transition that finds writes queued.
func (d *Drainer) WatchConnectivity(src ConnectivitySource) (unsubscribe func()) {
	return src.OnChange(func(online bool) {
		if !online {
			return
		}
		d.async.Add(1)
		go func() {
			defer d.async.Done()
			d.drainOnReconnect(context.Background())
		}()
	})
}

func (d *Drainer) drainOnReconnect(ctx context.Context) {
	owner, err := d.session.CurrentPrincipalID()
	if err != nil {
		return
	}
	n, err := d.store.PendingCount(ctx, owner)
	if err != nil || n == 0 {
		return
	}

	replayed, err := d.ProcessQueue(ctx)
	if err != nil {
		d.log.Warn(ctx, "reconnect drain failed", "error", err)
		return
	}
	d.log.Info(ctx, "reconnect drain finished", "replayed", replayed, "queued", n)
}

// Wait blocks until background drains have finished.
func (d *Drainer) Wait() {
	d.async.Wait()
}
