package timeentries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, owner, date, time_in, time_out, hours_rendered, created_at FROM time_entries`

func (r *SQLiteRepository) Put(ctx context.Context, e *models.TimeEntry) error {
	query := `INSERT INTO time_entries (id, owner, date, time_in, time_out, hours_rendered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			date = excluded.date,
			time_in = excluded.time_in,
			time_out = excluded.time_out,
			hours_rendered = excluded.hours_rendered,
			created_at = excluded.created_at`

	_, err := r.db.ExecContext(ctx, query, e.ID, e.Owner, e.Date, dbx.Nullable(e.TimeIn), dbx.Nullable(e.TimeOut),
		dbx.Nullable(e.HoursRendered), dbx.FormatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to put time entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIgnore(ctx context.Context, e *models.TimeEntry) (bool, error) {
	query := `INSERT OR IGNORE INTO time_entries (id, owner, date, time_in, time_out, hours_rendered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, e.ID, e.Owner, e.Date, dbx.Nullable(e.TimeIn), dbx.Nullable(e.TimeOut),
		dbx.Nullable(e.HoursRendered), dbx.FormatTime(e.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert time entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.TimeEntry, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetByDate(ctx context.Context, owner, date string) (*models.TimeEntry, error) {
	return r.getOne(ctx, selectColumns+` WHERE owner = ? AND date = ?`, owner, date)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.TimeEntry, error) {
	e, err := scan(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string) ([]models.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE owner = ? ORDER BY date DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select time entries: %w", err)
	}
	defer rows.Close()

	var result []models.TimeEntry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerExcept(ctx context.Context, owner string, keep []string) error {
	query := `DELETE FROM time_entries WHERE owner = ?`
	if len(keep) > 0 {
		query += ` AND id NOT IN (` + dbx.Placeholders(len(keep)) + `)`
	}
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(keep, owner)...); err != nil {
		return fmt.Errorf("failed to clear time entries: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceID(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}

	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM time_entries WHERE id = ?`, newID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check time entry id: %w", err)
	}

	if exists > 0 {
		return r.Delete(ctx, oldID)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE time_entries SET id = ? WHERE id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("failed to rewrite time entry id: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.TimeEntry, error) {
	var (
		e         models.TimeEntry
		timeIn    sql.NullString
		timeOut   sql.NullString
		hours     sql.NullFloat64
		createdAt string
	)
	if err := s.Scan(&e.ID, &e.Owner, &e.Date, &timeIn, &timeOut, &hours, &createdAt); err != nil {
		return nil, err
	}
	if timeIn.Valid {
		e.TimeIn = &timeIn.String
	}
	if timeOut.Valid {
		e.TimeOut = &timeOut.String
	}
	if hours.Valid {
		e.HoursRendered = &hours.Float64
	}

	t, err := dbx.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: time entry %s created_at: %v", common.ErrLocalStoreCorruption, e.ID, err)
	}
	e.CreatedAt = t
	return &e, nil
}
