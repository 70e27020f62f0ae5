package queue

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/sqlitetest"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueue(t *testing.T, r *SQLiteRepository, owner, rowID string, p models.Payload) *models.QueueEntry {
	t.Helper()
	e, err := models.NewQueueEntry(owner, rowID, p)
	require.NoError(t, err)
	require.NoError(t, r.Enqueue(context.Background(), e))
	return e
}

func TestEnqueue_OrderAndScope(t *testing.T) {
	r := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	first := enqueue(t, r, "u1", "e1", models.TimeEntryUpsert{Entry: models.TimeEntry{ID: "e1", Owner: "u1", Date: "2024-05-01"}})
	second := enqueue(t, r, "u1", "k1", models.TaskInsert{Task: models.Task{ID: "k1", TimeEntryID: "e1"}})
	enqueue(t, r, "u2", "x", models.TaskDelete{})

	assert.Greater(t, second.QueueID, first.QueueID)

	list, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.QueueID, list[0].QueueID)
	assert.Equal(t, models.CollectionTimeEntries, list[0].Collection)
	assert.Equal(t, models.OpUpsert, list[0].Operation)
	assert.Equal(t, models.CollectionTasks, list[1].Collection)

	p, err := list[1].Decode()
	require.NoError(t, err)
	assert.Equal(t, "e1", p.(*models.TaskInsert).Task.TimeEntryID)

	n, err := r.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, r.Delete(ctx, first.QueueID))
	n, err = r.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextAfter(t *testing.T) {
	r := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	first := enqueue(t, r, "u1", "e1", models.TaskDelete{})
	enqueue(t, r, "u2", "x", models.TaskDelete{})
	third := enqueue(t, r, "u1", "k1", models.TaskDelete{})

	e, err := r.NextAfter(ctx, "u1", 0)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, first.QueueID, e.QueueID)

	// The other owner's entry in between is skipped.
	e, err = r.NextAfter(ctx, "u1", first.QueueID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, third.QueueID, e.QueueID)
	assert.Equal(t, "k1", e.RowID)

	e, err = r.NextAfter(ctx, "u1", third.QueueID)
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, r.Delete(ctx, first.QueueID))
	e, err = r.NextAfter(ctx, "u1", 0)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, third.QueueID, e.QueueID)
}

func TestPendingRows(t *testing.T) {
	r := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	enqueue(t, r, "u1", "e1", models.TaskDelete{})
	enqueue(t, r, "u1", "e1", models.TaskDelete{})
	enqueue(t, r, "u1", "k1", models.TaskDelete{})
	enqueue(t, r, "u2", "z", models.TaskDelete{})

	ids, err := r.PendingRowIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"e1", "k1"}, ids)

	ok, err := r.HasPending(ctx, "u1", "nope", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasPending(ctx, "u1", "z")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.HasPending(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRewrite(t *testing.T) {
	r := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	e := enqueue(t, r, "u1", "local", models.TimeEntryUpsert{Entry: models.TimeEntry{ID: "local"}})

	p, err := e.Decode()
	require.NoError(t, err)
	require.True(t, p.(models.RefRewriter).RewriteRef("local", "remote"))
	e.Payload, err = models.EncodePayload(p)
	require.NoError(t, err)
	e.RowID = "remote"
	require.NoError(t, r.Rewrite(ctx, e))

	list, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "remote", list[0].RowID)
	p, err = list[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "remote", p.(*models.TimeEntryUpsert).Entry.ID)
}

func TestFailuresAndDeadLetters(t *testing.T) {
	r := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	e := enqueue(t, r, "u1", "k1", models.TaskDelete{})

	attempts, err := r.RecordFailure(ctx, e.QueueID, "rejected: check constraint")
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	attempts, err = r.RecordFailure(ctx, e.QueueID, "rejected again")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	require.NoError(t, r.MoveToDeadLetter(ctx, e.QueueID))

	n, err := r.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	dead, err := r.ListDeadLetters(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, e.QueueID, dead[0].QueueID)
	assert.Equal(t, 2, dead[0].Attempts)
	assert.Equal(t, "rejected again", dead[0].LastError)
	assert.False(t, dead[0].FailedAt.IsZero())

	require.ErrorIs(t, r.MoveToDeadLetter(ctx, e.QueueID), common.ErrNotFound)
	_, err = r.RecordFailure(ctx, 999, "x")
	require.ErrorIs(t, err, common.ErrNotFound)
}
