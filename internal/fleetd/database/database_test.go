package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

func TestRunInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE screens").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := RunInTx(context.Background(), db, nil, func(tx *Tx) error {
			_, err := tx.Exec("UPDATE screens SET name = 'x'")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := RunInTx(context.Background(), db, &TxOptions{ReadOnly: false}, func(*Tx) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  string
	}{
		{"unique violation", &pq.Error{Code: "23505"}, werrors.IsConflict, werrors.CodeConflict},
		{"foreign key", &pq.Error{Code: "23503"}, werrors.IsNotFound, werrors.CodeNotFound},
		{"check violation", &pq.Error{Code: "23514", Message: "bad"}, werrors.IsInvalidInput, werrors.CodeInvalidInput},
		{"no rows", sql.ErrNoRows, werrors.IsNotFound, werrors.CodeNotFound},
		{"domain error kept", werrors.ErrVersionMismatch, werrors.IsVersionMismatch, werrors.CodeVersionConflict},
		{"other", errors.New("connection reset"), func(error) bool { return true }, werrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err, "Test.Op")
			assert.True(t, tt.check(got))
			assert.Equal(t, tt.code, werrors.CodeOf(got))
		})
	}

	assert.NoError(t, MapError(nil, "Test.Op"))
}

func TestConditions(t *testing.T) {
	var c Conditions
	assert.Equal(t, "", c.Where())

	c.Add("restaurant_id = ?", "r1")
	c.Add("? = ANY(groups)", "lobby")
	limit := c.Next(10)

	assert.Equal(t, " WHERE restaurant_id = $1 AND $2 = ANY(groups)", c.Where())
	assert.Equal(t, "$3", limit)
	assert.Equal(t, []interface{}{"r1", "lobby", 10}, c.Args)
}
