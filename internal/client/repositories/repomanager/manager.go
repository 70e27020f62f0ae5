// Package repomanager vends SQLite-backed mirror repositories bound to a
// dbx.DBTX, so the same code runs against *sql.DB or inside a transaction.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/migrations"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/photos"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/queue"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/settings"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/timeentries"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"

	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	TimeEntries(db dbx.DBTX) timeentries.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	Photos(db dbx.DBTX) photos.Repository
	Settings(db dbx.DBTX) settings.Repository
	Queue(db dbx.DBTX) queue.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}

// SQLiteRepositoryManager is the RepositoryManager of the local mirror.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) TimeEntries(db dbx.DBTX) timeentries.Repository {
	return timeentries.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Tasks(db dbx.DBTX) tasks.Repository {
	return tasks.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Photos(db dbx.DBTX) photos.Repository {
	return photos.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Queue(db dbx.DBTX) queue.Repository {
	return queue.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// migrateUp is a seam for testing migration failures.
var migrateUp = migrations.Up

// Open opens (creating if needed) the mirror at path and brings its schema
// up to date. The pool holds a single connection: SQLite serialises
// writers anyway and ":memory:" databases are per connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure local store: %w", err)
	}

	if err := migrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate local store: %v", common.ErrLocalStoreCorruption, err)
	}
	return db, nil
}
