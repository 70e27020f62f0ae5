package tasks

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

// Repository is the local mirror of tasks.
type Repository interface {
	Put(ctx context.Context, t *models.Task) error
	InsertIgnore(ctx context.Context, t *models.Task) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)

	// ListByTimeEntry returns the entry's tasks, oldest first.
	ListByTimeEntry(ctx context.Context, timeEntryID string) ([]models.Task, error)

	Delete(ctx context.Context, id string) error
	DeleteByTimeEntry(ctx context.Context, timeEntryID string) error

	// DeleteByTimeEntryExcept removes the entry's tasks whose ID is not in keep.
	DeleteByTimeEntryExcept(ctx context.Context, timeEntryID string, keep []string) error

	// DeleteByOwnerExcept removes tasks of the owner's time entries whose
	// ID is not in keep. Call it before the parents are removed.
	DeleteByOwnerExcept(ctx context.Context, owner string, keep []string) error

	ReplaceID(ctx context.Context, oldID, newID string) error

	// RewriteTimeEntryID moves every task of oldID to newID.
	RewriteTimeEntryID(ctx context.Context, oldID, newID string) (int64, error)
}
