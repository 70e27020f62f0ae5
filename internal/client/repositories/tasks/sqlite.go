// Package tasks stores the local mirror of tasks in SQLite.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, time_entry_id, description, created_at FROM tasks`

func (r *SQLiteRepository) Put(ctx context.Context, t *models.Task) error {
	query := `INSERT INTO tasks (id, time_entry_id, description, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			time_entry_id = excluded.time_entry_id,
			description = excluded.description,
			created_at = excluded.created_at`

	if _, err := r.db.ExecContext(ctx, query, t.ID, t.TimeEntryID, t.Description, dbx.FormatTime(t.CreatedAt)); err != nil {
		return fmt.Errorf("failed to put task: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIgnore(ctx context.Context, t *models.Task) (bool, error) {
	query := `INSERT OR IGNORE INTO tasks (id, time_entry_id, description, created_at) VALUES (?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, t.ID, t.TimeEntryID, t.Description, dbx.FormatTime(t.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	t, err := scan(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListByTimeEntry(ctx context.Context, timeEntryID string) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE time_entry_id = ? ORDER BY created_at, id`, timeEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	var result []models.Task
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByTimeEntry(ctx context.Context, timeEntryID string) error {
	return r.DeleteByTimeEntryExcept(ctx, timeEntryID, nil)
}

func (r *SQLiteRepository) DeleteByTimeEntryExcept(ctx context.Context, timeEntryID string, keep []string) error {
	query := `DELETE FROM tasks WHERE time_entry_id = ?`
	if len(keep) > 0 {
		query += ` AND id NOT IN (` + dbx.Placeholders(len(keep)) + `)`
	}
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(keep, timeEntryID)...); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerExcept(ctx context.Context, owner string, keep []string) error {
	query := `DELETE FROM tasks WHERE time_entry_id IN (SELECT id FROM time_entries WHERE owner = ?)`
	if len(keep) > 0 {
		query += ` AND id NOT IN (` + dbx.Placeholders(len(keep)) + `)`
	}
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(keep, owner)...); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceID(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, newID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task id: %w", err)
	}
	if exists > 0 {
		return r.Delete(ctx, oldID)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE tasks SET id = ? WHERE id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("failed to rewrite task id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RewriteTimeEntryID(ctx context.Context, oldID, newID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET time_entry_id = ? WHERE time_entry_id = ?`, newID, oldID)
	if err != nil {
		return 0, fmt.Errorf("failed to rewrite task parent: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Task, error) {
	var (
		t         models.Task
		createdAt string
	)
	if err := s.Scan(&t.ID, &t.TimeEntryID, &t.Description, &createdAt); err != nil {
		return nil, err
	}
	ts, err := dbx.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: task %s created_at: %v", common.ErrLocalStoreCorruption, t.ID, err)
	}
	t.CreatedAt = ts
	return &t, nil
}
