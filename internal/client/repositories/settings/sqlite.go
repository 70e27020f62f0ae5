// Package settings stores per-principal preferences in the local mirror.
package settings

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

func (r *SQLiteRepository) GetByOwner(ctx context.Context, owner string) (*models.Settings, error) {
	query := `SELECT id, owner, required_hours, accent_color, theme FROM settings WHERE owner = ?`

	var s models.Settings
	err := r.db.QueryRowContext(ctx, query, owner).Scan(&s.ID, &s.Owner, &s.RequiredHours, &s.AccentColor, &s.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, s *models.Settings) error {
	query := `INSERT INTO settings (id, owner, required_hours, accent_color, theme) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			id = excluded.id,
			required_hours = excluded.required_hours,
			accent_color = excluded.accent_color,
			theme = excluded.theme`

	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Owner, s.RequiredHours, s.AccentColor, s.Theme); err != nil {
		return fmt.Errorf("failed to put settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIgnore(ctx context.Context, s *models.Settings) (bool, error) {
	query := `INSERT OR IGNORE INTO settings (id, owner, required_hours, accent_color, theme) VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, s.ID, s.Owner, s.RequiredHours, s.AccentColor, s.Theme)
	if err != nil {
		return false, fmt.Errorf("failed to insert settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) DeleteByOwner(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceID(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE settings SET id = ? WHERE id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("failed to rewrite settings id: %w", err)
	}
	return nil
}
