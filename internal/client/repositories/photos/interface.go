package photos

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

// Repository is the local mirror of photos, including binaries that are
// still waiting for upload.
type Repository interface {
	Put(ctx context.Context, p *models.Photo) error
	InsertIgnore(ctx context.Context, p *models.Photo) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Photo, error)

	// ListByTimeEntry returns the entry's photos, oldest first.
	ListByTimeEntry(ctx context.Context, timeEntryID string) ([]models.Photo, error)

	Delete(ctx context.Context, id string) error
	DeleteByTimeEntry(ctx context.Context, timeEntryID string) error
	DeleteByTimeEntryExcept(ctx context.Context, timeEntryID string, keep []string) error
	DeleteByOwnerExcept(ctx context.Context, owner string, keep []string) error

	ReplaceID(ctx context.Context, oldID, newID string) error
	RewriteTimeEntryID(ctx context.Context, oldID, newID string) (int64, error)

	// MarkUploaded stores the remote URL and drops the offline payload.
	MarkUploaded(ctx context.Context, id, imageURL string) error
}
