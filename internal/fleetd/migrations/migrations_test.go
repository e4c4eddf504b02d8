package migrations

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrdersEmbeddedMigrations(t *testing.T) {
	migs, err := Load()
	require.NoError(t, err)
	require.Len(t, migs, 3)

	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "screens", migs[0].Description)
	assert.Equal(t, "command_log", migs[1].Description)
	assert.Equal(t, "content", migs[2].Description)
	assert.Contains(t, migs[0].Up, "screens_wall_position_idx")
}

func TestStatementsSkipsComments(t *testing.T) {
	got := Statements(`
-- leading comment; with a semicolon
CREATE TABLE a (id INT);

CREATE INDEX a_idx ON a (id);
`)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", got[0])
	assert.Equal(t, "CREATE INDEX a_idx ON a (id)", got[1])
}

func TestApplySkipsRecordedVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2).AddRow(3))

	require.NoError(t, NewManager(db, zerolog.Nop()).Apply(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
