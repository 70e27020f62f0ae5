package timeentries

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

// Repository is the local mirror of time entries.
type Repository interface {
	// Put inserts e or overwrites the row with the same ID.
	Put(ctx context.Context, e *models.TimeEntry) error

	// InsertIgnore inserts e unless a row with the same ID or the same
	// (owner, date) already exists. Reports whether a row was written.
	InsertIgnore(ctx context.Context, e *models.TimeEntry) (bool, error)

	GetByID(ctx context.Context, id string) (*models.TimeEntry, error)

	// GetByDate returns common.ErrNotFound when the owner has no entry
	// for date.
	GetByDate(ctx context.Context, owner, date string) (*models.TimeEntry, error)

	// ListByOwner returns the owner's entries, newest date first.
	ListByOwner(ctx context.Context, owner string) ([]models.TimeEntry, error)

	Delete(ctx context.Context, id string) error

	// DeleteByOwnerExcept removes the owner's rows whose ID is not in keep.
	DeleteByOwnerExcept(ctx context.Context, owner string, keep []string) error

	// ReplaceID renames a row from oldID to newID. When a row with newID
	// already exists the old row is dropped instead.
	ReplaceID(ctx context.Context, oldID, newID string) error
}
