package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/worklog/internal/dbx"
	"github.com/dmitrijs2005/worklog/internal/logging"
	"github.com/dmitrijs2005/worklog/internal/pubsub"
)

// Store is the local mirror handle shared by the sync services.
type Store struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	queueSize pubsub.Subject[int]
	log       logging.Logger

	// gen counts mirror changes that a remote snapshot taken earlier may
	// not reflect: confirmed writes and local deletes.
	gen atomic.Uint64
}

// errStaleSnapshot reports that the mirror changed after a remote snapshot
// was taken, so the snapshot must not replace mirror rows.
var errStaleSnapshot = errors.New("remote snapshot is stale")

func NewStore(db *sql.DB, repos repomanager.RepositoryManager, log logging.Logger) *Store {
	return &Store{db: db, repos: repos, log: log.With("module", "store")}
}

// QueueSize publishes the principal's pending write count after every
// enqueue and every replayed entry.
func (s *Store) QueueSize() *pubsub.Subject[int] {
	return &s.queueSize
}

// PendingCount returns the number of queued writes of owner.
func (s *Store) PendingCount(ctx context.Context, owner string) (int, error) {
	n, err := s.repos.Queue(s.db).Count(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

func (s *Store) publishQueueSize(ctx context.Context, owner string) {
	n, err := s.PendingCount(ctx, owner)
	if err != nil {
		s.log.Warn(ctx, "queue size unavailable", "error", err)
		return
	}
	s.queueSize.Publish(n)
}

// generation returns the current mirror change counter.
func (s *Store) generation() uint64 {
	return s.gen.Load()
}

// touch marks a mirror change made outside confirm.
func (s *Store) touch() {
	s.gen.Add(1)
}

// checkFresh fails with errStaleSnapshot when the mirror changed since gen
// was read. Callers run it inside their transaction.
func (s *Store) checkFresh(gen uint64) error {
	if s.gen.Load() != gen {
		return errStaleSnapshot
	}
	return nil
}

// enqueue records p for later replay and publishes the new queue size.
func (s *Store) enqueue(ctx context.Context, owner, rowID string, p models.Payload) error {
	e, err := models.NewQueueEntry(owner, rowID, p)
	if err != nil {
		return err
	}
	if err := s.repos.Queue(s.db).Enqueue(ctx, e); err != nil {
		return fmt.Errorf("enqueue %s: %w", p.Kind(), err)
	}
	s.log.Debug(ctx, "write queued", "kind", p.Kind(), "row_id", rowID, "queue_id", e.QueueID)
	s.publishQueueSize(ctx, owner)
	return nil
}

// hasPending reports whether any of ids has queued writes. A failing check
// counts as pending so the caller queues instead of racing the drain.
func (s *Store) hasPending(ctx context.Context, owner string, ids ...string) bool {
	pending, err := s.repos.Queue(s.db).HasPending(ctx, owner, ids...)
	if err != nil {
		s.log.Warn(ctx, "pending check failed", "error", err)
		return true
	}
	return pending
}

// confirm applies a remote acknowledgement to the mirror in one
// transaction: when the remote ID differs from localID the local row is
// renamed, child rows follow a renamed time entry, and queued writes that
// reference localID are rewritten. save then stores the confirmed row.
func (s *Store) confirm(ctx context.Context, owner string, coll models.Collection, localID, remoteID string,
	save func(ctx context.Context, tx dbx.DBTX) error) error {

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Counted before commit: the single mirror connection orders this
		// against any snapshot check.
		s.touch()
		if remoteID != "" && remoteID != localID {
			if err := s.rename(ctx, tx, owner, coll, localID, remoteID); err != nil {
				return err
			}
		}
		if save == nil {
			return nil
		}
		return save(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("reconcile %s %s: %w", coll, localID, err)
	}
	return nil
}

func (s *Store) rename(ctx context.Context, tx dbx.DBTX, owner string, coll models.Collection, oldID, newID string) error {
	switch coll {
	case models.CollectionTimeEntries:
		if err := s.repos.TimeEntries(tx).ReplaceID(ctx, oldID, newID); err != nil {
			return err
		}
		tasksMoved, err := s.repos.Tasks(tx).RewriteTimeEntryID(ctx, oldID, newID)
		if err != nil {
			return err
		}
		photosMoved, err := s.repos.Photos(tx).RewriteTimeEntryID(ctx, oldID, newID)
		if err != nil {
			return err
		}
		s.log.Debug(ctx, "time entry id reconciled", "old", oldID, "new", newID,
			"tasks", tasksMoved, "photos", photosMoved)
	case models.CollectionTasks:
		if err := s.repos.Tasks(tx).ReplaceID(ctx, oldID, newID); err != nil {
			return err
		}
	case models.CollectionPhotos:
		if err := s.repos.Photos(tx).ReplaceID(ctx, oldID, newID); err != nil {
			return err
		}
	case models.CollectionSettings:
		if err := s.repos.Settings(tx).ReplaceID(ctx, oldID, newID); err != nil {
			return err
		}
	}
	return s.rewriteQueued(ctx, tx, owner, oldID, newID)
}

// rewriteQueued points still-queued writes of owner at newID. Entries whose
// payload cannot be decoded are left for the drainer to dead-letter.
func (s *Store) rewriteQueued(ctx context.Context, tx dbx.DBTX, owner, oldID, newID string) error {
	q := s.repos.Queue(tx)
	entries, err := q.ListByOwner(ctx, owner)
	if err != nil {
		return err
	}

	for i := range entries {
		e := &entries[i]
		changed := false
		if e.RowID == oldID {
			e.RowID = newID
			changed = true
		}

		if p, err := e.Decode(); err == nil {
			if rw, ok := p.(models.RefRewriter); ok && rw.RewriteRef(oldID, newID) {
				raw, err := models.EncodePayload(p)
				if err != nil {
					return err
				}
				e.Payload = raw
				changed = true
			}
		}

		if changed {
			if err := q.Rewrite(ctx, e); err != nil {
				return err
			}
		}
	}
	return nil
}
