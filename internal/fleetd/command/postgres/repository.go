// Package postgres implements the command log repository using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	"github.com/piragazh/feasto-signage/internal/fleetd/database"
)

const selectColumns = `
	SELECT id, screen_id, restaurant_id, screen_name, command, params,
		issued_by, status, issued_at, executed_at, error_message
	FROM command_log`

// Repository implements command.Repository
type Repository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewRepository creates a PostgreSQL command log repository
func NewRepository(db *sql.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "command-repository").Logger(),
	}
}

// Create appends an entry to the log
func (r *Repository) Create(ctx context.Context, e *command.Entry) error {
	const op = "CommandRepository.Create"

	params, err := marshalParams(e.Params)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO command_log (
			id, screen_id, restaurant_id, screen_name, command, params,
			issued_by, status, issued_at, executed_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		e.ID,
		e.ScreenID,
		e.RestaurantID,
		e.ScreenName,
		e.Command,
		params,
		e.IssuedBy,
		string(e.Status),
		e.IssuedAt,
		e.ExecutedAt,
		e.ErrorMessage,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("commandId", e.ID.String()).
			Str("operation", op).
			Msg("failed to insert command")
		return database.MapError(err, op)
	}
	return nil
}

// FindByID retrieves an entry
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*command.Entry, error) {
	const op = "CommandRepository.FindByID"

	e, err := scanEntry(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, command.ErrNotFound{ID: id.String()}
		}
		r.logger.Error().Err(err).
			Str("commandId", id.String()).
			Str("operation", op).
			Msg("failed to find command")
		return nil, database.MapError(err, op)
	}
	return e, nil
}

// Complete writes a terminal transition guarded on the stored status still
// being pending
func (r *Repository) Complete(ctx context.Context, e *command.Entry) error {
	const op = "CommandRepository.Complete"

	return database.MapError(database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE command_log
			SET status = $1,
				executed_at = $2,
				error_message = $3
			WHERE id = $4
			  AND status = 'pending'
		`, string(e.Status), e.ExecutedAt, e.ErrorMessage, e.ID)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 1 {
			return nil
		}

		var current string
		err = tx.QueryRowContext(ctx, `SELECT status FROM command_log WHERE id = $1`, e.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return command.ErrNotFound{ID: e.ID.String()}
		}
		if err != nil {
			return err
		}

		r.logger.Warn().
			Str("commandId", e.ID.String()).
			Str("status", current).
			Str("operation", op).
			Msg("command already terminal")
		return command.ErrAlreadyTerminal{ID: e.ID.String(), Status: command.Status(current)}
	}), op)
}

// List returns entries newest first
func (r *Repository) List(ctx context.Context, filter command.Filter) ([]*command.Entry, error) {
	const op = "CommandRepository.List"

	var cond database.Conditions
	if filter.ScreenID != uuid.Nil {
		cond.Add("screen_id = ?", filter.ScreenID)
	}
	if filter.Status != "" {
		cond.Add("status = ?", string(filter.Status))
	}

	query := selectColumns + cond.Where() + ` ORDER BY issued_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + cond.Next(filter.Limit)
	}

	return r.query(ctx, op, query, cond.Args...)
}

// ListPendingBefore returns pending entries issued strictly before cutoff
func (r *Repository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*command.Entry, error) {
	const op = "CommandRepository.ListPendingBefore"

	return r.query(ctx, op,
		selectColumns+` WHERE status = 'pending' AND issued_at < $1 ORDER BY issued_at`,
		cutoff)
}

func (r *Repository) query(ctx context.Context, op, query string, args ...interface{}) ([]*command.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("operation", op).Msg("failed to query commands")
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var entries []*command.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, database.MapError(err, op)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*command.Entry, error) {
	var (
		e          command.Entry
		status     string
		params     []byte
		executedAt sql.NullTime
	)
	err := row.Scan(
		&e.ID,
		&e.ScreenID,
		&e.RestaurantID,
		&e.ScreenName,
		&e.Command,
		&params,
		&e.IssuedBy,
		&status,
		&e.IssuedAt,
		&executedAt,
		&e.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	e.Status = command.Status(status)
	if executedAt.Valid {
		t := executedAt.Time
		e.ExecutedAt = &t
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &e.Params); err != nil {
			return nil, fmt.Errorf("error unmarshaling params: %w", err)
		}
	}
	return &e, nil
}

func marshalParams(p map[string]string) ([]byte, error) {
	if p == nil {
		p = map[string]string{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("error marshaling params: %w", err)
	}
	return b, nil
}
