package remote

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newGatewayWithMock(t *testing.T) (*PostgresGateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresGateway(db, time.Second), mock
}

func strPtr(s string) *string { return &s }

var timeEntryCols = []string{"id", "user_id", "date", "time_in", "time_out", "hours_rendered", "created_at"}

func TestListTimeEntries_ScopedAndOrdered(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM time_entries WHERE user_id = \$1 ORDER BY date DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(timeEntryCols).
			AddRow("r2", "u1", "2024-05-02", "08:00", "17:00", 9.0, created).
			AddRow("r1", "u1", "2024-05-01", "08:00", nil, nil, created))

	got, err := g.ListTimeEntries(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, 9.0, *got[0].HoursRendered)
	assert.Nil(t, got[1].TimeOut)
	assert.Nil(t, got[1].HoursRendered)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTimeEntry_NotFound(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM time_entries WHERE user_id = \$1 AND date = \$2`).
		WithArgs("u1", "2024-05-01").
		WillReturnError(sql.ErrNoRows)

	_, err := g.GetTimeEntry(context.Background(), "u1", "2024-05-01")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertTimeEntry_ReturnsServerRow(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`INSERT INTO time_entries .* ON CONFLICT \(user_id, date\) DO UPDATE SET .* RETURNING`).
		WithArgs("local-1", "u1", "2024-05-01", "08:00", nil, nil, created).
		WillReturnRows(sqlmock.NewRows(timeEntryCols).AddRow("remote-1", "u1", "2024-05-01", "08:00", nil, nil, created))

	got, err := g.UpsertTimeEntry(context.Background(), "u1", models.TimeEntry{
		ID: "local-1", Owner: "u1", Date: "2024-05-01", TimeIn: strPtr("08:00"), CreatedAt: created,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTimeEntry_Rejected(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`INSERT INTO time_entries`).
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "check constraint"})

	_, err := g.UpsertTimeEntry(context.Background(), "u1", models.TimeEntry{ID: "x", Date: "bad"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestDeleteTimeEntry(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectExec(`DELETE FROM time_entries WHERE id = \$1 AND user_id = \$2`).
		WithArgs("r1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM time_entries`).
		WithArgs("gone", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, g.DeleteTimeEntry(context.Background(), "u1", "r1"))
	require.ErrorIs(t, g.DeleteTimeEntry(context.Background(), "u1", "gone"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTask_ClientIDAndScoping(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`INSERT INTO tasks .* SELECT \$1, te.id, \$2, \$3 FROM time_entries te WHERE te.id = \$4 AND te.user_id = \$5 ON CONFLICT \(client_id\)`).
		WithArgs("local-task", "Reviewed logs", created, "remote-1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "time_entry_id", "description", "created_at"}).
			AddRow("remote-task", "remote-1", "Reviewed logs", created))

	got, err := g.InsertTask(context.Background(), "u1", models.Task{
		ID: "local-task", TimeEntryID: "remote-1", Description: "Reviewed logs", CreatedAt: created,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-task", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTask_MissingParentIsRejected(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`INSERT INTO tasks`).WillReturnError(sql.ErrNoRows)

	_, err := g.InsertTask(context.Background(), "u1", models.Task{ID: "k", TimeEntryID: "local-only"})
	require.ErrorIs(t, err, ErrRejected)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDeleteTask(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`UPDATE tasks t SET description = COALESCE\(\$1, t.description\) FROM time_entries te`).
		WithArgs("new text", "k1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "time_entry_id", "description", "created_at"}).
			AddRow("k1", "e1", "new text", created))
	mock.ExpectQuery(`UPDATE tasks`).
		WithArgs(nil, "gone", "u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`DELETE FROM tasks t USING time_entries te`).
		WithArgs("k1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := g.UpdateTask(context.Background(), "u1", "k1", models.TaskPatch{Description: strPtr("new text")})
	require.NoError(t, err)
	assert.Equal(t, "new text", got.Description)

	_, err = g.UpdateTask(context.Background(), "u1", "gone", models.TaskPatch{})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, g.DeleteTask(context.Background(), "u1", "k1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTasksAndPhotos(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`FROM tasks t JOIN time_entries te .* WHERE te.user_id = \$1 AND t.time_entry_id = \$2`).
		WithArgs("u1", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "time_entry_id", "description", "created_at"}).
			AddRow("k1", "e1", "a", created).
			AddRow("k2", "e1", "b", created.Add(time.Minute)))
	mock.ExpectQuery(`FROM photos p JOIN time_entries te .* WHERE te.user_id = \$1 ORDER BY`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "time_entry_id", "image_url", "created_at"}).
			AddRow("p1", "e1", "https://cdn/photos/u1/e1/p1-a.jpg", created))

	ts, err := g.ListTasks(context.Background(), "u1", "e1")
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "k2", ts[1].ID)

	ps, err := g.ListAllPhotos(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Nil(t, ps[0].OfflinePayload)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAndDeletePhoto(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectQuery(`INSERT INTO photos .* ON CONFLICT \(client_id\)`).
		WithArgs("p-local", "https://cdn/x", created, "e1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "time_entry_id", "image_url", "created_at"}).
			AddRow("p-remote", "e1", "https://cdn/x", created))
	mock.ExpectExec(`DELETE FROM photos p USING time_entries te`).
		WithArgs("p-remote", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	got, err := g.InsertPhoto(context.Background(), "u1", models.Photo{
		ID: "p-local", TimeEntryID: "e1", ImageURL: "https://cdn/x", CreatedAt: created,
	})
	require.NoError(t, err)
	assert.Equal(t, "p-remote", got.ID)

	require.ErrorIs(t, g.DeletePhoto(context.Background(), "u1", "p-remote"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

var settingsCols = []string{"id", "user_id", "required_hours", "accent_color", "theme"}

func TestSettings(t *testing.T) {
	g, mock := newGatewayWithMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM settings WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO settings .* ON CONFLICT \(user_id\) DO UPDATE SET user_id = EXCLUDED.user_id`).
		WithArgs("u1", 600.0, "green", "light").
		WillReturnRows(sqlmock.NewRows(settingsCols).AddRow("s1", "u1", 600.0, "green", "light"))
	mock.ExpectQuery(`UPDATE settings SET .* WHERE user_id = \$4`).
		WithArgs(nil, nil, "dark", "u1").
		WillReturnRows(sqlmock.NewRows(settingsCols).AddRow("s1", "u1", 600.0, "green", "dark"))
	mock.ExpectQuery(`INSERT INTO settings .* required_hours = EXCLUDED.required_hours`).
		WithArgs("u1", 480.0, "blue", "dark").
		WillReturnRows(sqlmock.NewRows(settingsCols).AddRow("s1", "u1", 480.0, "blue", "dark"))

	_, err := g.GetSettings(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	s, err := g.InsertSettings(ctx, "u1", models.DefaultSettings("", "u1"))
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)

	s, err = g.UpdateSettings(ctx, "u1", models.SettingsPatch{Theme: strPtr("dark")})
	require.NoError(t, err)
	assert.Equal(t, "dark", s.Theme)

	s, err = g.UpsertSettings(ctx, "u1", models.Settings{RequiredHours: 480, AccentColor: "blue", Theme: "dark"})
	require.NoError(t, err)
	assert.Equal(t, 480.0, s.RequiredHours)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	g, mock := newGatewayWithMock(t)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	require.NoError(t, g.Ping(context.Background()))
	require.ErrorIs(t, g.Ping(context.Background()), ErrUnavailable)
}

func TestCallTimeoutIsUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	g := NewPostgresGateway(db, 20*time.Millisecond)

	mock.ExpectQuery(`SELECT .* FROM time_entries`).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows(timeEntryCols))

	_, err = g.ListTimeEntries(context.Background(), "u1")
	require.ErrorIs(t, err, ErrUnavailable)
}
