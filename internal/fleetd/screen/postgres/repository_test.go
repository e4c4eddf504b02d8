package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

var _ screen.Repository = (*Repository)(nil)

var (
	now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	screenCols = []string{
		"id", "restaurant_id", "name", "wall_enabled", "wall_name", "wall_row", "wall_col",
		"grid_rows", "grid_cols", "bezel_compensation", "rotation", "last_heartbeat",
		"heartbeat_interval", "issues", "pending_command", "groups", "version",
		"created_at", "updated_at",
	}
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, zerolog.Nop()), mock
}

func newScreen(t *testing.T) *screen.Screen {
	t.Helper()
	s, err := screen.NewScreen("r1", "menu-1", 60, nil)
	require.NoError(t, err)
	s.CreatedAt = now
	s.UpdatedAt = now
	return s
}

func TestSaveInsert(t *testing.T) {
	repo, mock := newMock(t)
	s := newScreen(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM screens WHERE id = \\$1 FOR UPDATE").
		WithArgs(s.ID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectExec("INSERT INTO screens").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), s))
	assert.Equal(t, 1, s.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUpdate(t *testing.T) {
	repo, mock := newMock(t)
	s := newScreen(t)
	s.Version = 4
	s.Heartbeat(now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM screens").
		WithArgs(s.ID).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))
	mock.ExpectExec("UPDATE screens").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), s))
	assert.Equal(t, 5, s.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConflicts(t *testing.T) {
	t.Run("stale version", func(t *testing.T) {
		repo, mock := newMock(t)
		s := newScreen(t)
		s.Version = 2

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version FROM screens").
			WithArgs(s.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
		mock.ExpectRollback()

		err := repo.Save(context.Background(), s)
		assert.True(t, werrors.IsVersionMismatch(err))
		assert.Equal(t, 2, s.Version)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing screen with version", func(t *testing.T) {
		repo, mock := newMock(t)
		s := newScreen(t)
		s.Version = 2

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version FROM screens").
			WithArgs(s.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectRollback()

		assert.True(t, werrors.IsNotFound(repo.Save(context.Background(), s)))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo, mock := newMock(t)
		s := newScreen(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version FROM screens").
			WithArgs(s.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectExec("INSERT INTO screens").
			WillReturnError(&pq.Error{Code: "23505", Constraint: nameConstraint})
		mock.ExpectRollback()

		err := repo.Save(context.Background(), s)
		assert.True(t, werrors.IsConflict(err))
		var taken screen.ErrNameTaken
		assert.True(t, errors.As(err, &taken))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("occupied wall cell", func(t *testing.T) {
		repo, mock := newMock(t)
		s := newScreen(t)
		s.Wall = &screen.WallConfig{Enabled: true, WallName: "front", GridSize: screen.GridSize{Rows: 1, Cols: 1}}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version FROM screens").
			WithArgs(s.ID).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectExec("INSERT INTO screens").
			WillReturnError(&pq.Error{Code: "23505", Constraint: positionConstraint})
		mock.ExpectRollback()

		err := repo.Save(context.Background(), s)
		var taken screen.ErrPositionTaken
		require.True(t, errors.As(err, &taken))
		assert.Equal(t, "front", taken.WallName)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindByID(t *testing.T) {
	repo, mock := newMock(t)
	id := uuid.New()
	issueID := uuid.New()
	entryID := uuid.New()

	issues := `[{"id":"` + issueID.String() + `","kind":"error","message":"player crashed","timestamp":"2024-03-04T11:00:00Z","resolved":false}]`
	pending := `{"command":"reboot","logEntryId":"` + entryID.String() + `","issuedAt":"2024-03-04T11:30:00Z"}`

	mock.ExpectQuery("SELECT (.+) FROM screens WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(screenCols).AddRow(
			id.String(), "r1", "menu-1", true, "front", 0, 1, 2, 2, 12, 90, now,
			30, []byte(issues), []byte(pending), "{lobby,menu}", 7, now, now,
		))

	s, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "menu-1", s.Name)
	require.True(t, s.InWall())
	assert.Equal(t, screen.Position{Row: 0, Col: 1}, s.Wall.Position)
	assert.Equal(t, screen.GridSize{Rows: 2, Cols: 2}, s.Wall.GridSize)
	assert.Equal(t, 12, s.Wall.BezelCompensation)
	assert.Equal(t, 90, s.Wall.Rotation)
	require.NotNil(t, s.LastHeartbeat)
	assert.Equal(t, 30, s.HeartbeatInterval)
	require.Len(t, s.Issues, 1)
	assert.Equal(t, issueID, s.Issues[0].ID)
	assert.Equal(t, 1, s.UnresolvedCount(screen.IssueError))
	require.NotNil(t, s.PendingCommand)
	assert.Equal(t, entryID, s.PendingCommand.LogEntryID)
	assert.Equal(t, []string{"lobby", "menu"}, s.Groups)
	assert.Equal(t, 7, s.Version)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByNameMissing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM screens WHERE name = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(screenCols))

	_, err := repo.FindByName(context.Background(), "ghost")
	assert.True(t, werrors.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFilters(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM screens WHERE wall_enabled AND wall_name = \\$1 AND \\$2 = ANY\\(groups\\) ORDER BY name").
		WithArgs("front", "lobby").
		WillReturnRows(sqlmock.NewRows(screenCols).AddRow(
			uuid.New().String(), "r1", "a", false, nil, nil, nil, nil, nil, 0, 0, nil,
			60, []byte(`[]`), nil, "{}", 1, now, now,
		))

	screens, err := repo.List(context.Background(), screen.Filter{WallName: "front", Group: "lobby"})
	require.NoError(t, err)
	require.Len(t, screens, 1)
	assert.Nil(t, screens[0].Wall)
	assert.Nil(t, screens[0].LastHeartbeat)
	assert.Nil(t, screens[0].PendingCommand)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWallNames(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT DISTINCT wall_name FROM screens").
		WillReturnRows(sqlmock.NewRows([]string{"wall_name"}).AddRow("back").AddRow("front"))

	names, err := repo.ListWallNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"back", "front"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM screens WHERE id = \\$1").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, werrors.IsNotFound(repo.Delete(context.Background(), id)))
	require.NoError(t, mock.ExpectationsWereMet())
}
