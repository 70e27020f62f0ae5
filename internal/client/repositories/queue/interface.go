package queue

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

// Repository is the append-only mutation queue. Entries are ordered by
// their autoincrement QueueID.
type Repository interface {
	// Enqueue appends e and sets e.QueueID.
	Enqueue(ctx context.Context, e *models.QueueEntry) error

	// ListByOwner returns the owner's entries in replay order.
	ListByOwner(ctx context.Context, owner string) ([]models.QueueEntry, error)

	// NextAfter returns the owner's first entry with a QueueID above after,
	// or nil when there is none.
	NextAfter(ctx context.Context, owner string, after int64) (*models.QueueEntry, error)

	Delete(ctx context.Context, queueID int64) error
	Count(ctx context.Context, owner string) (int, error)

	// PendingRowIDs returns the distinct row IDs the owner has queued writes for.
	PendingRowIDs(ctx context.Context, owner string) ([]string, error)

	// HasPending reports whether any of rowIDs has a queued write.
	HasPending(ctx context.Context, owner string, rowIDs ...string) (bool, error)

	// Rewrite stores a new RowID and Payload for an existing entry.
	Rewrite(ctx context.Context, e *models.QueueEntry) error

	// RecordFailure bumps the attempt counter and returns its new value.
	RecordFailure(ctx context.Context, queueID int64, reason string) (int, error)

	// MoveToDeadLetter removes the entry from the queue and keeps a copy in
	// the dead letter table.
	MoveToDeadLetter(ctx context.Context, queueID int64) error

	ListDeadLetters(ctx context.Context, owner string) ([]models.DeadLetter, error)
}
