package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

func (g *PostgresGateway) ListTasks(ctx context.Context, owner, timeEntryID string) ([]models.Task, error) {
	query := `SELECT t.id, t.time_entry_id, t.description, t.created_at
		FROM tasks t JOIN time_entries te ON te.id = t.time_entry_id
		WHERE te.user_id = $1 AND t.time_entry_id = $2
		ORDER BY t.created_at, t.id`
	return g.queryTasks(ctx, query, owner, timeEntryID)
}

func (g *PostgresGateway) ListAllTasks(ctx context.Context, owner string) ([]models.Task, error) {
	query := `SELECT t.id, t.time_entry_id, t.description, t.created_at
		FROM tasks t JOIN time_entries te ON te.id = t.time_entry_id
		WHERE te.user_id = $1
		ORDER BY t.created_at, t.id`
	return g.queryTasks(ctx, query, owner)
}

func (g *PostgresGateway) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.TimeEntryID, &t.Description, &t.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// InsertTask inserts through a SELECT on the parent so a task can only be
// attached to the owner's own time entries. A replay with the same
// client_id returns the row stored the first time.
func (g *PostgresGateway) InsertTask(ctx context.Context, owner string, t models.Task) (*models.Task, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `INSERT INTO tasks (client_id, time_entry_id, description, created_at)
		SELECT $1, te.id, $2, $3 FROM time_entries te WHERE te.id = $4 AND te.user_id = $5
		ON CONFLICT (client_id) DO UPDATE SET client_id = EXCLUDED.client_id
		RETURNING id, time_entry_id, description, created_at`

	var stored models.Task
	err := g.db.QueryRowContext(ctx, query, t.ID, t.Description, createdAtOrNow(t.CreatedAt), t.TimeEntryID, owner).
		Scan(&stored.ID, &stored.TimeEntryID, &stored.Description, &stored.CreatedAt)
	if err != nil {
		mapped := mapError(err)
		if errors.Is(mapped, ErrNotFound) {
			return nil, fmt.Errorf("%w: time entry %s is not visible", ErrRejected, t.TimeEntryID)
		}
		return nil, mapped
	}
	return &stored, nil
}

func (g *PostgresGateway) UpdateTask(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `UPDATE tasks t SET description = COALESCE($1, t.description)
		FROM time_entries te
		WHERE t.id = $2 AND te.id = t.time_entry_id AND te.user_id = $3
		RETURNING t.id, t.time_entry_id, t.description, t.created_at`

	var stored models.Task
	err := g.db.QueryRowContext(ctx, query, dbx.Nullable(patch.Description), id, owner).
		Scan(&stored.ID, &stored.TimeEntryID, &stored.Description, &stored.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &stored, nil
}

func (g *PostgresGateway) DeleteTask(ctx context.Context, owner, id string) error {
	return g.execOne(ctx, `DELETE FROM tasks t USING time_entries te
		WHERE t.id = $1 AND te.id = t.time_entry_id AND te.user_id = $2`, id, owner)
}
