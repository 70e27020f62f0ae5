// Package photos stores the local mirror of photos in SQLite.
//
// A photo captured offline keeps its binary as a data URL in
// offline_payload until the drainer uploads it.
package photos

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

const selectColumns = `SELECT id, time_entry_id, image_url, created_at, offline_payload, offline_filename FROM photos`

func (r *SQLiteRepository) Put(ctx context.Context, p *models.Photo) error {
	query := `INSERT INTO photos (id, time_entry_id, image_url, created_at, offline_payload, offline_filename)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			time_entry_id = excluded.time_entry_id,
			image_url = excluded.image_url,
			created_at = excluded.created_at,
			offline_payload = excluded.offline_payload,
			offline_filename = excluded.offline_filename`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.TimeEntryID, p.ImageURL, dbx.FormatTime(p.CreatedAt),
		dbx.Nullable(p.OfflinePayload), dbx.Nullable(p.OfflineFilename))
	if err != nil {
		return fmt.Errorf("failed to put photo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIgnore(ctx context.Context, p *models.Photo) (bool, error) {
	query := `INSERT OR IGNORE INTO photos (id, time_entry_id, image_url, created_at, offline_payload, offline_filename)
		VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, p.ID, p.TimeEntryID, p.ImageURL, dbx.FormatTime(p.CreatedAt),
		dbx.Nullable(p.OfflinePayload), dbx.Nullable(p.OfflineFilename))
	if err != nil {
		return false, fmt.Errorf("failed to insert photo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	p, err := scan(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListByTimeEntry(ctx context.Context, timeEntryID string) ([]models.Photo, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE time_entry_id = ? ORDER BY created_at, id`, timeEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []models.Photo
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByTimeEntry(ctx context.Context, timeEntryID string) error {
	return r.DeleteByTimeEntryExcept(ctx, timeEntryID, nil)
}

func (r *SQLiteRepository) DeleteByTimeEntryExcept(ctx context.Context, timeEntryID string, keep []string) error {
	query := `DELETE FROM photos WHERE time_entry_id = ?`
	if len(keep) > 0 {
		query += ` AND id NOT IN (` + dbx.Placeholders(len(keep)) + `)`
	}
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(keep, timeEntryID)...); err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerExcept(ctx context.Context, owner string, keep []string) error {
	query := `DELETE FROM photos WHERE time_entry_id IN (SELECT id FROM time_entries WHERE owner = ?)`
	if len(keep) > 0 {
		query += ` AND id NOT IN (` + dbx.Placeholders(len(keep)) + `)`
	}
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(keep, owner)...); err != nil {
		return fmt.Errorf("failed to clear photos: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceID(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE id = ?`, newID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check photo id: %w", err)
	}
	if exists > 0 {
		return r.Delete(ctx, oldID)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE photos SET id = ? WHERE id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("failed to rewrite photo id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RewriteTimeEntryID(ctx context.Context, oldID, newID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE photos SET time_entry_id = ? WHERE time_entry_id = ?`, newID, oldID)
	if err != nil {
		return 0, fmt.Errorf("failed to rewrite photo parent: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, id, imageURL string) error {
	query := `UPDATE photos SET image_url = ?, offline_payload = NULL, offline_filename = NULL WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, imageURL, id)
	if err != nil {
		return fmt.Errorf("failed to mark photo uploaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Photo, error) {
	var (
		p         models.Photo
		createdAt string
		payload   sql.NullString
		filename  sql.NullString
	)
	if err := s.Scan(&p.ID, &p.TimeEntryID, &p.ImageURL, &createdAt, &payload, &filename); err != nil {
		return nil, err
	}
	if payload.Valid {
		p.OfflinePayload = &payload.String
	}
	if filename.Valid {
		p.OfflineFilename = &filename.String
	}
	ts, err := dbx.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: photo %s created_at: %v", common.ErrLocalStoreCorruption, p.ID, err)
	}
	p.CreatedAt = ts
	return &p, nil
}
