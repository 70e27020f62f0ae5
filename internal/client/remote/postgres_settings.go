package remote

import (
	"context"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

const settingsColumns = `id, user_id, required_hours, accent_color, theme`

func (g *PostgresGateway) GetSettings(ctx context.Context, owner string) (*models.Settings, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	row := g.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM settings WHERE user_id = $1`, owner)
	return scanSettings(row)
}

// InsertSettings relies on the unique user_id constraint: concurrent
// callers all get the single stored row back.
func (g *PostgresGateway) InsertSettings(ctx context.Context, owner string, s models.Settings) (*models.Settings, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `INSERT INTO settings (user_id, required_hours, accent_color, theme) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + settingsColumns
	return scanSettings(g.db.QueryRowContext(ctx, query, owner, s.RequiredHours, s.AccentColor, s.Theme))
}

func (g *PostgresGateway) UpsertSettings(ctx context.Context, owner string, s models.Settings) (*models.Settings, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `INSERT INTO settings (user_id, required_hours, accent_color, theme) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			required_hours = EXCLUDED.required_hours,
			accent_color = EXCLUDED.accent_color,
			theme = EXCLUDED.theme
		RETURNING ` + settingsColumns
	return scanSettings(g.db.QueryRowContext(ctx, query, owner, s.RequiredHours, s.AccentColor, s.Theme))
}

func (g *PostgresGateway) UpdateSettings(ctx context.Context, owner string, patch models.SettingsPatch) (*models.Settings, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `UPDATE settings SET
			required_hours = COALESCE($1, required_hours),
			accent_color = COALESCE($2, accent_color),
			theme = COALESCE($3, theme)
		WHERE user_id = $4
		RETURNING ` + settingsColumns
	row := g.db.QueryRowContext(ctx, query, dbx.Nullable(patch.RequiredHours), dbx.Nullable(patch.AccentColor),
		dbx.Nullable(patch.Theme), owner)
	return scanSettings(row)
}

func scanSettings(s scanner) (*models.Settings, error) {
	var out models.Settings
	if err := s.Scan(&out.ID, &out.Owner, &out.RequiredHours, &out.AccentColor, &out.Theme); err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}
