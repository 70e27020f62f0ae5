package settings

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

// Repository is the local mirror of per-owner settings. The owner column
// is unique, so there is never more than one row per principal.
type Repository interface {
	GetByOwner(ctx context.Context, owner string) (*models.Settings, error)

	// Put writes s, replacing the owner's existing row.
	Put(ctx context.Context, s *models.Settings) error

	// InsertIgnore writes s only when the owner has no row yet.
	InsertIgnore(ctx context.Context, s *models.Settings) (bool, error)

	DeleteByOwner(ctx context.Context, owner string) error
	ReplaceID(ctx context.Context, oldID, newID string) error
}
