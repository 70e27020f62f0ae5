// Package sqlitetest opens migrated in-memory mirrors for tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/worklog/internal/client/migrations"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// Open returns a fresh in-memory mirror with the full schema applied.
// The pool is limited to one connection because every :memory:
// connection would otherwise see its own empty database.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}
