package remote

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

// TimeEntryGateway reads and writes the principal's time entries.
type TimeEntryGateway interface {
	// ListTimeEntries returns the owner's entries, newest date first.
	ListTimeEntries(ctx context.Context, owner string) ([]models.TimeEntry, error)

	// GetTimeEntry returns ErrNotFound when the owner has no entry for date.
	GetTimeEntry(ctx context.Context, owner, date string) (*models.TimeEntry, error)

	// UpsertTimeEntry writes e keyed by (owner, date) and returns the stored
	// row with its server ID.
	UpsertTimeEntry(ctx context.Context, owner string, e models.TimeEntry) (*models.TimeEntry, error)

	DeleteTimeEntry(ctx context.Context, owner, id string) error
}

// TaskGateway reads and writes tasks of the principal's time entries.
type TaskGateway interface {
	// ListTasks returns the entry's tasks, oldest first.
	ListTasks(ctx context.Context, owner, timeEntryID string) ([]models.Task, error)
	ListAllTasks(ctx context.Context, owner string) ([]models.Task, error)

	// InsertTask stores t and returns the row with its server ID. t.ID is
	// sent as client_id.
	InsertTask(ctx context.Context, owner string, t models.Task) (*models.Task, error)

	UpdateTask(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, owner, id string) error
}

// PhotoGateway reads and writes photo rows. Binaries go through Attachments.
type PhotoGateway interface {
	ListPhotos(ctx context.Context, owner, timeEntryID string) ([]models.Photo, error)
	ListAllPhotos(ctx context.Context, owner string) ([]models.Photo, error)
	InsertPhoto(ctx context.Context, owner string, p models.Photo) (*models.Photo, error)
	DeletePhoto(ctx context.Context, owner, id string) error
}

// SettingsGateway reads and writes the principal's single settings row.
type SettingsGateway interface {
	// GetSettings returns ErrNotFound when the owner has no row.
	GetSettings(ctx context.Context, owner string) (*models.Settings, error)

	// InsertSettings creates s unless the owner already has a row, and
	// returns whichever row is stored.
	InsertSettings(ctx context.Context, owner string, s models.Settings) (*models.Settings, error)

	// UpsertSettings overwrites the owner's row with s.
	UpsertSettings(ctx context.Context, owner string, s models.Settings) (*models.Settings, error)

	UpdateSettings(ctx context.Context, owner string, patch models.SettingsPatch) (*models.Settings, error)
}

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gateway bundles every row operation of the backing store.
type Gateway interface {
	TimeEntryGateway
	TaskGateway
	PhotoGateway
	SettingsGateway
	Pinger
}

// Attachments stores photo binaries.
type Attachments interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error

	// Remove deletes the object at path. A missing object is not an error.
	Remove(ctx context.Context, path string) error

	// PublicURL returns the retrievable URL of path.
	PublicURL(path string) string

	// PathFromURL is the inverse of PublicURL. It reports false for URLs
	// that do not point into this store.
	PathFromURL(url string) (string, bool)
}
