package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/models"
)

func (g *PostgresGateway) ListPhotos(ctx context.Context, owner, timeEntryID string) ([]models.Photo, error) {
	query := `SELECT p.id, p.time_entry_id, p.image_url, p.created_at
		FROM photos p JOIN time_entries te ON te.id = p.time_entry_id
		WHERE te.user_id = $1 AND p.time_entry_id = $2
		ORDER BY p.created_at, p.id`
	return g.queryPhotos(ctx, query, owner, timeEntryID)
}

func (g *PostgresGateway) ListAllPhotos(ctx context.Context, owner string) ([]models.Photo, error) {
	query := `SELECT p.id, p.time_entry_id, p.image_url, p.created_at
		FROM photos p JOIN time_entries te ON te.id = p.time_entry_id
		WHERE te.user_id = $1
		ORDER BY p.created_at, p.id`
	return g.queryPhotos(ctx, query, owner)
}

func (g *PostgresGateway) queryPhotos(ctx context.Context, query string, args ...any) ([]models.Photo, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.TimeEntryID, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (g *PostgresGateway) InsertPhoto(ctx context.Context, owner string, p models.Photo) (*models.Photo, error) {
	ctx, cancel := g.call(ctx)
	defer cancel()

	query := `INSERT INTO photos (client_id, time_entry_id, image_url, created_at)
		SELECT $1, te.id, $2, $3 FROM time_entries te WHERE te.id = $4 AND te.user_id = $5
		ON CONFLICT (client_id) DO UPDATE SET image_url = EXCLUDED.image_url
		RETURNING id, time_entry_id, image_url, created_at`

	var stored models.Photo
	err := g.db.QueryRowContext(ctx, query, p.ID, p.ImageURL, createdAtOrNow(p.CreatedAt), p.TimeEntryID, owner).
		Scan(&stored.ID, &stored.TimeEntryID, &stored.ImageURL, &stored.CreatedAt)
	if err != nil {
		mapped := mapError(err)
		if errors.Is(mapped, ErrNotFound) {
			return nil, fmt.Errorf("%w: time entry %s is not visible", ErrRejected, p.TimeEntryID)
		}
		return nil, mapped
	}
	return &stored, nil
}

func (g *PostgresGateway) DeletePhoto(ctx context.Context, owner, id string) error {
	return g.execOne(ctx, `DELETE FROM photos p USING time_entries te
		WHERE p.id = $1 AND te.id = p.time_entry_id AND te.user_id = $2`, id, owner)
}
