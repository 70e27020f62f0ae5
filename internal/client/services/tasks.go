package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

// ListTasks returns the tasks of a time entry, oldest first.
func (r *Repository) ListTasks(ctx context.Context, timeEntryID string) ([]models.Task, error) {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}

	// An entry that only exists locally has nothing to fetch.
	if r.readRemote() && !r.store.hasPending(ctx, owner, timeEntryID) {
		gen := r.store.generation()
		rows, err := r.remote.ListTasks(ctx, owner, timeEntryID)
		if err == nil {
			if err := r.refreshTasks(ctx, owner, timeEntryID, gen, rows); err != nil && !errors.Is(err, errStaleSnapshot) {
				r.log.Warn(ctx, "mirror refresh failed", "collection", models.CollectionTasks, "error", err)
				return rows, nil
			}
		} else {
			r.remoteFailed(ctx, "list tasks", err)
		}
	}

	tasks, err := r.store.repos.Tasks(r.store.db).ListByTimeEntry(ctx, timeEntryID)
	if err != nil {
		return nil, fmt.Errorf("list local tasks: %w", err)
	}
	return tasks, nil
}

func (r *Repository) refreshTasks(ctx context.Context, owner, timeEntryID string, gen uint64, rows []models.Task) error {
	return dbx.WithTx(ctx, r.store.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.store.checkFresh(gen); err != nil {
			return err
		}
		pending, err := r.store.repos.Queue(tx).PendingRowIDs(ctx, owner)
		if err != nil {
			return err
		}
		tasks := r.store.repos.Tasks(tx)
		if err := tasks.DeleteByTimeEntryExcept(ctx, timeEntryID, pending); err != nil {
			return err
		}
		for i := range rows {
			if _, err := tasks.InsertIgnore(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateTask adds a task to a time entry.
func (r *Repository) CreateTask(ctx context.Context, timeEntryID, description string) (*models.Task, error) {
	if err := models.ValidateDescription(description); err != nil {
		return nil, err
	}
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}

	if err := r.requireTimeEntry(ctx, timeEntryID); err != nil {
		return nil, err
	}

	t := models.Task{
		ID:          r.newID(),
		TimeEntryID: timeEntryID,
		Description: description,
		CreatedAt:   r.now(),
	}
	if err := r.store.repos.Tasks(r.store.db).Put(ctx, &t); err != nil {
		return nil, fmt.Errorf("save local task: %w", err)
	}

	if r.direct(ctx, owner, t.ID, timeEntryID) {
		stored, err := r.remote.InsertTask(ctx, owner, t)
		if err == nil {
			err = r.store.confirm(ctx, owner, models.CollectionTasks, t.ID, stored.ID,
				func(ctx context.Context, tx dbx.DBTX) error {
					return r.store.repos.Tasks(tx).Put(ctx, stored)
				})
			if err != nil {
				return nil, err
			}
			return stored, nil
		}
		r.remoteFailed(ctx, "insert task", err)
	}

	if err := r.store.enqueue(ctx, owner, t.ID, &models.TaskInsert{Task: t}); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies patch to a task.
func (r *Repository) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	if patch.Description != nil {
		if err := models.ValidateDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}

	tasks := r.store.repos.Tasks(r.store.db)
	t, err := tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get local task: %w", err)
	}
	patch.Apply(t)
	if err := tasks.Put(ctx, t); err != nil {
		return nil, fmt.Errorf("save local task: %w", err)
	}

	if r.direct(ctx, owner, id, t.TimeEntryID) {
		stored, err := r.remote.UpdateTask(ctx, owner, id, patch)
		if err == nil {
			if err := tasks.Put(ctx, stored); err != nil {
				return nil, fmt.Errorf("save local task: %w", err)
			}
			return stored, nil
		}
		r.remoteFailed(ctx, "update task", err)
	}

	if err := r.store.enqueue(ctx, owner, id, &models.TaskUpdate{Patch: patch}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return err
	}

	if err := r.store.repos.Tasks(r.store.db).Delete(ctx, id); err != nil {
		return fmt.Errorf("delete local task: %w", err)
	}
	r.store.touch()

	if r.direct(ctx, owner, id) {
		err := r.remote.DeleteTask(ctx, owner, id)
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		r.remoteFailed(ctx, "delete task", err)
	}
	return r.store.enqueue(ctx, owner, id, &models.TaskDelete{})
}

// requireTimeEntry rejects children of an entry the mirror does not know.
func (r *Repository) requireTimeEntry(ctx context.Context, id string) error {
	_, err := r.store.repos.TimeEntries(r.store.db).GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("%w: unknown time entry %s", common.ErrInvalidInput, id)
	}
	if err != nil {
		return fmt.Errorf("get local time entry: %w", err)
	}
	return nil
}
