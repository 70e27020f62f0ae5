package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

// ListTimeEntries returns the principal's time entries, newest date first.
func (r *Repository) ListTimeEntries(ctx context.Context) ([]models.TimeEntry, error) {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}

	if r.readRemote() {
		gen := r.store.generation()
		rows, err := r.remote.ListTimeEntries(ctx, owner)
		if err == nil {
			if err := r.refreshTimeEntries(ctx, owner, gen, rows); err != nil && !errors.Is(err, errStaleSnapshot) {
				r.log.Warn(ctx, "mirror refresh failed", "collection", models.CollectionTimeEntries, "error", err)
				return rows, nil
			}
		} else {
			r.remoteFailed(ctx, "list time entries", err)
		}
	}

	entries, err := r.store.repos.TimeEntries(r.store.db).ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list local time entries: %w", err)
	}
	return entries, nil
}

// refreshTimeEntries replaces the owner's mirrored time entries with rows.
// Rows with queued writes stay as they are; so do their queued children.
func (r *Repository) refreshTimeEntries(ctx context.Context, owner string, gen uint64, rows []models.TimeEntry) error {
	return dbx.WithTx(ctx, r.store.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.store.checkFresh(gen); err != nil {
			return err
		}
		pending, err := r.store.repos.Queue(tx).PendingRowIDs(ctx, owner)
		if err != nil {
			return err
		}

		entries := r.store.repos.TimeEntries(tx)
		local, err := entries.ListByOwner(ctx, owner)
		if err != nil {
			return err
		}

		remoteIDs := make(map[string]struct{}, len(rows))
		for _, e := range rows {
			remoteIDs[e.ID] = struct{}{}
		}
		for _, e := range local {
			if _, ok := remoteIDs[e.ID]; ok || slices.Contains(pending, e.ID) {
				continue
			}
			if err := r.dropChildren(ctx, tx, e.ID, pending); err != nil {
				return err
			}
		}

		if err := entries.DeleteByOwnerExcept(ctx, owner, pending); err != nil {
			return err
		}
		for i := range rows {
			if _, err := entries.InsertIgnore(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) dropChildren(ctx context.Context, tx dbx.DBTX, timeEntryID string, keep []string) error {
	if err := r.store.repos.Tasks(tx).DeleteByTimeEntryExcept(ctx, timeEntryID, keep); err != nil {
		return err
	}
	return r.store.repos.Photos(tx).DeleteByTimeEntryExcept(ctx, timeEntryID, keep)
}

// GetTimeEntry returns the principal's entry for date, or nil when there
// is none.
func (r *Repository) GetTimeEntry(ctx context.Context, date string) (*models.TimeEntry, error) {
	if err := models.ValidateDate(date); err != nil {
		return nil, err
	}
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}

	if r.readRemote() {
		gen := r.store.generation()
		row, err := r.remote.GetTimeEntry(ctx, owner, date)
		switch {
		case err == nil || errors.Is(err, remote.ErrNotFound):
			if err := r.refreshTimeEntry(ctx, owner, date, gen, row); err != nil && !errors.Is(err, errStaleSnapshot) {
				r.log.Warn(ctx, "mirror refresh failed", "collection", models.CollectionTimeEntries, "error", err)
				return row, nil
			}
		default:
			r.remoteFailed(ctx, "get time entry", err)
		}
	}
	return r.localTimeEntry(ctx, owner, date)
}

func (r *Repository) localTimeEntry(ctx context.Context, owner, date string) (*models.TimeEntry, error) {
	e, err := r.store.repos.TimeEntries(r.store.db).GetByDate(ctx, owner, date)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get local time entry: %w", err)
	}
	return e, nil
}

// refreshTimeEntry brings the mirror row for (owner, date) in line with
// row, which is nil when the remote store has none. A local row with
// queued writes wins.
func (r *Repository) refreshTimeEntry(ctx context.Context, owner, date string, gen uint64, row *models.TimeEntry) error {
	return dbx.WithTx(ctx, r.store.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.store.checkFresh(gen); err != nil {
			return err
		}
		pending, err := r.store.repos.Queue(tx).PendingRowIDs(ctx, owner)
		if err != nil {
			return err
		}

		entries := r.store.repos.TimeEntries(tx)
		local, err := entries.GetByDate(ctx, owner, date)
		switch {
		case errors.Is(err, common.ErrNotFound):
		case err != nil:
			return err
		case slices.Contains(pending, local.ID):
			return nil
		case row == nil || row.ID != local.ID:
			if err := r.dropChildren(ctx, tx, local.ID, pending); err != nil {
				return err
			}
			if err := entries.Delete(ctx, local.ID); err != nil {
				return err
			}
		}

		if row == nil {
			return nil
		}
		return entries.Put(ctx, row)
	})
}

// UpsertTimeEntry writes the principal's entry for e.Date. An existing
// local row for that date keeps its ID; otherwise a speculative one is
// generated.
func (r *Repository) UpsertTimeEntry(ctx context.Context, e models.TimeEntry) (*models.TimeEntry, error) {
	if err := validateTimeEntry(e); err != nil {
		return nil, err
	}
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}
	e.Owner = owner

	entries := r.store.repos.TimeEntries(r.store.db)
	existing, err := entries.GetByDate(ctx, owner, e.Date)
	switch {
	case err == nil:
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	case errors.Is(err, common.ErrNotFound):
		e.ID = r.newID()
		e.CreatedAt = r.now()
	default:
		return nil, fmt.Errorf("get local time entry: %w", err)
	}

	if err := entries.Put(ctx, &e); err != nil {
		return nil, fmt.Errorf("save local time entry: %w", err)
	}

	if r.direct(ctx, owner, e.ID) {
		stored, err := r.remote.UpsertTimeEntry(ctx, owner, e)
		if err == nil {
			err = r.store.confirm(ctx, owner, models.CollectionTimeEntries, e.ID, stored.ID,
				func(ctx context.Context, tx dbx.DBTX) error {
					return r.store.repos.TimeEntries(tx).Put(ctx, stored)
				})
			if err != nil {
				return nil, err
			}
			return stored, nil
		}
		r.remoteFailed(ctx, "upsert time entry", err)
	}

	if err := r.store.enqueue(ctx, owner, e.ID, &models.TimeEntryUpsert{Entry: e}); err != nil {
		return nil, err
	}
	return &e, nil
}

func validateTimeEntry(e models.TimeEntry) error {
	if err := models.ValidateDate(e.Date); err != nil {
		return err
	}
	for _, c := range []*string{e.TimeIn, e.TimeOut} {
		if c == nil {
			continue
		}
		if err := models.ValidateClock(*c); err != nil {
			return err
		}
	}
	if e.HoursRendered != nil && *e.HoursRendered < 0 {
		return fmt.Errorf("%w: hours rendered must not be negative", common.ErrInvalidInput)
	}
	return nil
}

// TimeIn records the start of work on date.
func (r *Repository) TimeIn(ctx context.Context, date, clock string) (*models.TimeEntry, error) {
	if err := models.ValidateClock(clock); err != nil {
		return nil, err
	}
	current, err := r.GetTimeEntry(ctx, date)
	if err != nil {
		return nil, err
	}

	e := models.TimeEntry{Date: date}
	if current != nil {
		e = *current
	}
	e.TimeIn = &clock
	if e.TimeOut != nil {
		hours, err := models.HoursBetween(clock, *e.TimeOut)
		if err != nil {
			return nil, err
		}
		e.HoursRendered = &hours
	}
	return r.UpsertTimeEntry(ctx, e)
}

// TimeOut records the end of work on date and the hours rendered. Sessions
// past midnight wrap into the next day.
func (r *Repository) TimeOut(ctx context.Context, date, clock string) (*models.TimeEntry, error) {
	if err := models.ValidateClock(clock); err != nil {
		return nil, err
	}
	current, err := r.GetTimeEntry(ctx, date)
	if err != nil {
		return nil, err
	}
	if current == nil || current.TimeIn == nil {
		return nil, fmt.Errorf("%w: no time in recorded for %s", common.ErrInvalidInput, date)
	}

	hours, err := models.HoursBetween(*current.TimeIn, clock)
	if err != nil {
		return nil, err
	}
	e := *current
	e.TimeOut = &clock
	e.HoursRendered = &hours
	return r.UpsertTimeEntry(ctx, e)
}

// DeleteTimeEntry removes the entry with its tasks and photos, including
// uploaded photo objects.
func (r *Repository) DeleteTimeEntry(ctx context.Context, id string) error {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return err
	}

	photos, err := r.store.repos.Photos(r.store.db).ListByTimeEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("list local photos: %w", err)
	}
	tasks, err := r.store.repos.Tasks(r.store.db).ListByTimeEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("list local tasks: %w", err)
	}

	// Queued child writes must replay before the parent goes away.
	related := []string{id}
	for _, t := range tasks {
		related = append(related, t.ID)
	}
	payload := &models.TimeEntryDelete{}
	for _, p := range photos {
		related = append(related, p.ID)
		if p.PendingUpload() {
			continue
		}
		if path, ok := r.files.PathFromURL(p.ImageURL); ok {
			payload.PhotoPaths = append(payload.PhotoPaths, path)
		}
	}

	err = dbx.WithTx(ctx, r.store.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.store.repos.Tasks(tx).DeleteByTimeEntry(ctx, id); err != nil {
			return err
		}
		if err := r.store.repos.Photos(tx).DeleteByTimeEntry(ctx, id); err != nil {
			return err
		}
		return r.store.repos.TimeEntries(tx).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete local time entry: %w", err)
	}
	r.store.touch()

	if r.direct(ctx, owner, related...) {
		err := r.remote.DeleteTimeEntry(ctx, owner, id)
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			r.removeObjects(ctx, payload.PhotoPaths...)
			return nil
		}
		r.remoteFailed(ctx, "delete time entry", err)
	}
	return r.store.enqueue(ctx, owner, id, payload)
}

// removeObjects deletes stored photo binaries. Leftover objects are only
// wasted space, so failures are logged.
func (r *Repository) removeObjects(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if err := r.files.Remove(ctx, p); err != nil {
			r.log.Warn(ctx, "photo object not removed", "path", p, "error", err)
		}
	}
}
