package remote

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

const timeEntryColumns = `id, user_id, date, time_in, time_out, hours_rendered, created_at`

func (g *PostgresGateway) ListTimeEntries(ctx context.Context, owner string) ([]models.TimeEntry, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE user_id = $1 ORDER BY date DESC`
	rows, err := g.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []models.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (g *PostgresGateway) GetTimeEntry(ctx context.Context, owner, date string) (*models.TimeEntry, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE user_id = $1 AND date = $2`
	e, err := scanTimeEntry(g.db.QueryRowContext(ctx, query, owner, date))
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

func (g *PostgresGateway) UpsertTimeEntry(ctx context.Context, owner string, e models.TimeEntry) (*models.TimeEntry, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `INSERT INTO time_entries (client_id, user_id, date, time_in, time_out, hours_rendered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, date) DO UPDATE SET
			time_in = EXCLUDED.time_in,
			time_out = EXCLUDED.time_out,
			hours_rendered = EXCLUDED.hours_rendered
		RETURNING ` + timeEntryColumns

	row := g.db.QueryRowContext(ctx, query, e.ID, owner, e.Date, dbx.Nullable(e.TimeIn), dbx.Nullable(e.TimeOut),
		dbx.Nullable(e.HoursRendered), createdAtOrNow(e.CreatedAt))
	stored, err := scanTimeEntry(row)
	if err != nil {
		return nil, mapError(err)
	}
	return stored, nil
}

// DeleteTimeEntry removes the entry; its tasks and photos go with it
// through ON DELETE CASCADE.
func (g *PostgresGateway) DeleteTimeEntry(ctx context.Context, owner, id string) error {
	return g.execOne(ctx, `DELETE FROM time_entries WHERE id = $1 AND user_id = $2`, id, owner)
}

func scanTimeEntry(s scanner) (*models.TimeEntry, error) {
	var (
		e       models.TimeEntry
		timeIn  sql.NullString
		timeOut sql.NullString
		hours   sql.NullFloat64
	)
	if err := s.Scan(&e.ID, &e.Owner, &e.Date, &timeIn, &timeOut, &hours, &e.CreatedAt); err != nil {
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
	return &e, nil
}
