// Package queue persists the offline mutation queue and its dead letters.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const queueColumns = `queue_id, owner, target_collection, operation, affected_row_id, payload, enqueued_at, attempts, last_error`

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.QueueEntry) error {
	query := `INSERT INTO mutation_queue (owner, target_collection, operation, affected_row_id, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, e.Owner, string(e.Collection), string(e.Operation), e.RowID,
		string(e.Payload), dbx.FormatTime(e.EnqueuedAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get queue id: %w", err)
	}
	e.QueueID = id
	return nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string) ([]models.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+queueColumns+` FROM mutation_queue WHERE owner = ? ORDER BY queue_id`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue: %w", err)
	}
	defer rows.Close()

	var result []models.QueueEntry
	for rows.Next() {
		e, _, err := scan(rows, false)
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

func (r *SQLiteRepository) NextAfter(ctx context.Context, owner string, after int64) (*models.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM mutation_queue WHERE owner = ? AND queue_id > ? ORDER BY queue_id LIMIT 1`

	e, _, err := scan(r.db.QueryRowContext(ctx, query, owner, after), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select next queue entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, queueID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mutation_queue WHERE queue_id = ?`, queueID); err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutation_queue WHERE owner = ?`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) PendingRowIDs(ctx context.Context, owner string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT affected_row_id FROM mutation_queue WHERE owner = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending rows: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SQLiteRepository) HasPending(ctx context.Context, owner string, rowIDs ...string) (bool, error) {
	if len(rowIDs) == 0 {
		return false, nil
	}
	query := `SELECT EXISTS (SELECT 1 FROM mutation_queue WHERE owner = ? AND affected_row_id IN (` +
		dbx.Placeholders(len(rowIDs)) + `))`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, dbx.Args(rowIDs, owner)...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending rows: %w", err)
	}
	return exists, nil
}

func (r *SQLiteRepository) Rewrite(ctx context.Context, e *models.QueueEntry) error {
	_, err := r.db.ExecContext(ctx, `UPDATE mutation_queue SET affected_row_id = ?, payload = ? WHERE queue_id = ?`,
		e.RowID, string(e.Payload), e.QueueID)
	if err != nil {
		return fmt.Errorf("failed to rewrite queue entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, queueID int64, reason string) (int, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE mutation_queue SET attempts = attempts + 1, last_error = ? WHERE queue_id = ?`,
		reason, queueID)
	if err != nil {
		return 0, fmt.Errorf("failed to record replay failure: %w", err)
	}

	var attempts int
	err = r.db.QueryRowContext(ctx, `SELECT attempts FROM mutation_queue WHERE queue_id = ?`, queueID).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read attempts: %w", err)
	}
	return attempts, nil
}

func (r *SQLiteRepository) MoveToDeadLetter(ctx context.Context, queueID int64) error {
	query := `INSERT INTO dead_letters (` + queueColumns + `, failed_at)
		SELECT ` + queueColumns + `, ? FROM mutation_queue WHERE queue_id = ?`

	res, err := r.db.ExecContext(ctx, query, dbx.FormatTime(time.Now()), queueID)
	if err != nil {
		return fmt.Errorf("failed to copy dead letter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return r.Delete(ctx, queueID)
}

func (r *SQLiteRepository) ListDeadLetters(ctx context.Context, owner string) ([]models.DeadLetter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+queueColumns+`, failed_at FROM dead_letters WHERE owner = ? ORDER BY queue_id`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select dead letters: %w", err)
	}
	defer rows.Close()

	var result []models.DeadLetter
	for rows.Next() {
		e, failedAt, err := scan(rows, true)
		if err != nil {
			return nil, err
		}
		result = append(result, models.DeadLetter{QueueEntry: *e, FailedAt: failedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner, withFailedAt bool) (*models.QueueEntry, time.Time, error) {
	var (
		e          models.QueueEntry
		collection string
		operation  string
		payload    string
		enqueuedAt string
		failedAt   string
	)
	dest := []any{&e.QueueID, &e.Owner, &collection, &operation, &e.RowID, &payload, &enqueuedAt, &e.Attempts, &e.LastError}
	if withFailedAt {
		dest = append(dest, &failedAt)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, time.Time{}, err
	}

	e.Collection = models.Collection(collection)
	e.Operation = models.Operation(operation)
	e.Payload = []byte(payload)

	ts, err := dbx.ParseTime(enqueuedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: queue entry %d: %v", common.ErrLocalStoreCorruption, e.QueueID, err)
	}
	e.EnqueuedAt = ts

	var failed time.Time
	if withFailedAt {
		if failed, err = dbx.ParseTime(failedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: dead letter %d: %v", common.ErrLocalStoreCorruption, e.QueueID, err)
		}
	}
	return &e, failed, nil
}
