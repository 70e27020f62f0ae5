package services

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"golang.org/x/sync/errgroup"
)

// GetDailyEntry returns the time entry of date with its tasks and photos,
// or nil when the day has no entry.
func (r *Repository) GetDailyEntry(ctx context.Context, date string) (*models.DailyEntry, error) {
	e, err := r.GetTimeEntry(ctx, date)
	if err != nil || e == nil {
		return nil, err
	}

	day := &models.DailyEntry{Entry: *e}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := r.ListTasks(gctx, e.ID)
		day.Tasks = tasks
		return err
	})
	g.Go(func() error {
		photos, err := r.ListPhotos(gctx, e.ID)
		day.Photos = photos
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return day, nil
}
