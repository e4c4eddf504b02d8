// Package postgres implements the screen repository using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/database"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// Constraint names from the screens migration
const (
	nameConstraint     = "screens_name_key"
	positionConstraint = "screens_wall_position_idx"
)

const selectColumns = `
	SELECT id, restaurant_id, name, wall_enabled, wall_name, wall_row, wall_col,
		grid_rows, grid_cols, bezel_compensation, rotation, last_heartbeat,
		heartbeat_interval, issues, pending_command, groups, version,
		created_at, updated_at
	FROM screens`

// Repository implements screen.Repository
type Repository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewRepository creates a PostgreSQL screen repository
func NewRepository(db *sql.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "screen-repository").Logger(),
	}
}

// issueRecord is the JSONB form of a screen issue
type issueRecord struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	Message    string     `json:"message"`
	Severity   string     `json:"severity,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// pendingRecord is the JSONB form of the pending command
type pendingRecord struct {
	Command    string    `json:"command"`
	LogEntryID uuid.UUID `json:"logEntryId"`
	IssuedAt   time.Time `json:"issuedAt"`
}

// Save inserts a screen or compare-and-swaps an existing one on version
func (r *Repository) Save(ctx context.Context, s *screen.Screen) error {
	const op = "ScreenRepository.Save"

	issues, pending, err := marshalState(s)
	if err != nil {
		return err
	}
	w := wallColumns(s.Wall)

	err = database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `SELECT version FROM screens WHERE id = $1 FOR UPDATE`, s.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			if s.Version != 0 {
				return screen.ErrNotFound{ID: s.ID.String()}
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO screens (
					id, restaurant_id, name, wall_enabled, wall_name, wall_row, wall_col,
					grid_rows, grid_cols, bezel_compensation, rotation, last_heartbeat,
					heartbeat_interval, issues, pending_command, groups, version,
					created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17, $18)
			`,
				s.ID, s.RestaurantID, s.Name, w.enabled, w.name, w.row, w.col,
				w.rows, w.cols, w.bezel, w.rotation, s.LastHeartbeat,
				s.HeartbeatInterval, issues, pending, groupsArray(s.Groups),
				s.CreatedAt, s.UpdatedAt,
			)
			return err
		}
		if err != nil {
			return err
		}

		if current != s.Version {
			r.logger.Warn().
				Str("screenId", s.ID.String()).
				Int("currentVersion", current).
				Int("expectedVersion", s.Version).
				Str("operation", op).
				Msg("version mismatch")
			return screen.ErrVersionMismatch{ID: s.ID.String()}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE screens
			SET restaurant_id = $1,
				name = $2,
				wall_enabled = $3,
				wall_name = $4,
				wall_row = $5,
				wall_col = $6,
				grid_rows = $7,
				grid_cols = $8,
				bezel_compensation = $9,
				rotation = $10,
				last_heartbeat = $11,
				heartbeat_interval = $12,
				issues = $13,
				pending_command = $14,
				groups = $15,
				updated_at = $16,
				version = version + 1
			WHERE id = $17
			  AND version = $18
		`,
			s.RestaurantID, s.Name, w.enabled, w.name, w.row, w.col,
			w.rows, w.cols, w.bezel, w.rotation, s.LastHeartbeat,
			s.HeartbeatInterval, issues, pending, groupsArray(s.Groups),
			s.UpdatedAt, s.ID, s.Version,
		)
		return err
	})
	if err != nil {
		r.logger.Error().Err(err).
			Str("screenId", s.ID.String()).
			Str("operation", op).
			Msg("failed to save screen")
		return r.mapSaveError(err, op, s)
	}

	s.Version++
	return nil
}

// FindByID retrieves a screen by ID
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*screen.Screen, error) {
	const op = "ScreenRepository.FindByID"
	return r.findOne(ctx, op, id.String(), selectColumns+` WHERE id = $1`, id)
}

// FindByName retrieves a screen by name
func (r *Repository) FindByName(ctx context.Context, name string) (*screen.Screen, error) {
	const op = "ScreenRepository.FindByName"
	return r.findOne(ctx, op, name, selectColumns+` WHERE name = $1`, name)
}

// FindByWallPosition returns the screen bound to a wall cell
func (r *Repository) FindByWallPosition(ctx context.Context, wallName string, pos screen.Position) (*screen.Screen, error) {
	const op = "ScreenRepository.FindByWallPosition"
	return r.findOne(ctx, op, fmt.Sprintf("%s(%d,%d)", wallName, pos.Row, pos.Col),
		selectColumns+` WHERE wall_enabled AND wall_name = $1 AND wall_row = $2 AND wall_col = $3`,
		wallName, pos.Row, pos.Col)
}

// List retrieves screens matching the filter ordered by name
func (r *Repository) List(ctx context.Context, filter screen.Filter) ([]*screen.Screen, error) {
	const op = "ScreenRepository.List"

	var cond database.Conditions
	if filter.RestaurantID != "" {
		cond.Add("restaurant_id = ?", filter.RestaurantID)
	}
	if filter.WallName != "" {
		cond.Add("wall_enabled AND wall_name = ?", filter.WallName)
	}
	if filter.Group != "" {
		cond.Add("? = ANY(groups)", filter.Group)
	}

	rows, err := r.db.QueryContext(ctx, selectColumns+cond.Where()+` ORDER BY name`, cond.Args...)
	if err != nil {
		r.logger.Error().Err(err).Str("operation", op).Msg("failed to query screens")
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var screens []*screen.Screen
	for rows.Next() {
		s, err := scanScreen(rows)
		if err != nil {
			return nil, database.MapError(err, op)
		}
		screens = append(screens, s)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return screens, nil
}

// ListWallNames returns the distinct names of walls with bound screens
func (r *Repository) ListWallNames(ctx context.Context) ([]string, error) {
	const op = "ScreenRepository.ListWallNames"

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT wall_name FROM screens
		WHERE wall_enabled AND wall_name IS NOT NULL
		ORDER BY wall_name
	`)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, database.MapError(err, op)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return names, nil
}

// Delete removes a screen
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "ScreenRepository.Delete"

	result, err := r.db.ExecContext(ctx, `DELETE FROM screens WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).
			Str("screenId", id.String()).
			Str("operation", op).
			Msg("failed to delete screen")
		return database.MapError(err, op)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.MapError(err, op)
	}
	if rows == 0 {
		return screen.ErrNotFound{ID: id.String()}
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, op, ref, query string, args ...interface{}) (*screen.Screen, error) {
	s, err := scanScreen(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, screen.ErrNotFound{ID: ref}
		}
		r.logger.Error().Err(err).
			Str("ref", ref).
			Str("operation", op).
			Msg("failed to find screen")
		return nil, database.MapError(err, op)
	}
	return s, nil
}

// mapSaveError names the uniqueness rule a failed save broke
func (r *Repository) mapSaveError(err error, op string, s *screen.Screen) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case nameConstraint:
			return screen.ErrNameTaken{Name: s.Name}
		case positionConstraint:
			if s.Wall != nil {
				return screen.ErrPositionTaken{WallName: s.Wall.WallName, Position: s.Wall.Position}
			}
		}
	}
	return database.MapError(err, op)
}

type wallRow struct {
	enabled  bool
	name     sql.NullString
	row      sql.NullInt64
	col      sql.NullInt64
	rows     sql.NullInt64
	cols     sql.NullInt64
	bezel    int
	rotation int
}

func wallColumns(w *screen.WallConfig) wallRow {
	if w == nil {
		return wallRow{}
	}
	return wallRow{
		enabled:  w.Enabled,
		name:     sql.NullString{String: w.WallName, Valid: true},
		row:      sql.NullInt64{Int64: int64(w.Position.Row), Valid: true},
		col:      sql.NullInt64{Int64: int64(w.Position.Col), Valid: true},
		rows:     sql.NullInt64{Int64: int64(w.GridSize.Rows), Valid: true},
		cols:     sql.NullInt64{Int64: int64(w.GridSize.Cols), Valid: true},
		bezel:    w.BezelCompensation,
		rotation: w.Rotation,
	}
}

// marshalState encodes the JSONB columns; a missing pending command is NULL
func marshalState(s *screen.Screen) ([]byte, interface{}, error) {
	records := make([]issueRecord, len(s.Issues))
	for i, is := range s.Issues {
		records[i] = issueRecord{
			ID:         is.ID,
			Kind:       string(is.Kind),
			Message:    is.Message,
			Severity:   is.Severity,
			Timestamp:  is.Timestamp,
			Resolved:   is.Resolved,
			ResolvedAt: is.ResolvedAt,
		}
	}
	issues, err := json.Marshal(records)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling issues: %w", err)
	}

	if pc := s.PendingCommand; pc != nil {
		pending, err := json.Marshal(pendingRecord{Command: pc.Command, LogEntryID: pc.LogEntryID, IssuedAt: pc.IssuedAt})
		if err != nil {
			return nil, nil, fmt.Errorf("error marshaling pending command: %w", err)
		}
		return issues, pending, nil
	}
	return issues, nil, nil
}

// groupsArray keeps the NOT NULL groups column at '{}' for screens without labels
func groupsArray(groups []string) interface{} {
	if groups == nil {
		groups = []string{}
	}
	return pq.Array(groups)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanScreen(row scanner) (*screen.Screen, error) {
	var (
		s         screen.Screen
		w         wallRow
		heartbeat sql.NullTime
		issues    []byte
		pending   []byte
		groups    []string
	)
	err := row.Scan(
		&s.ID,
		&s.RestaurantID,
		&s.Name,
		&w.enabled,
		&w.name,
		&w.row,
		&w.col,
		&w.rows,
		&w.cols,
		&w.bezel,
		&w.rotation,
		&heartbeat,
		&s.HeartbeatInterval,
		&issues,
		&pending,
		pq.Array(&groups),
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if w.name.Valid {
		s.Wall = &screen.WallConfig{
			Enabled:           w.enabled,
			WallName:          w.name.String,
			Position:          screen.Position{Row: int(w.row.Int64), Col: int(w.col.Int64)},
			GridSize:          screen.GridSize{Rows: int(w.rows.Int64), Cols: int(w.cols.Int64)},
			BezelCompensation: w.bezel,
			Rotation:          w.rotation,
		}
	}
	if heartbeat.Valid {
		t := heartbeat.Time
		s.LastHeartbeat = &t
	}
	s.Groups = groups

	if len(issues) > 0 {
		var records []issueRecord
		if err := json.Unmarshal(issues, &records); err != nil {
			return nil, fmt.Errorf("error unmarshaling issues: %w", err)
		}
		for _, rec := range records {
			s.Issues = append(s.Issues, screen.Issue{
				ID:         rec.ID,
				Kind:       screen.IssueKind(rec.Kind),
				Message:    rec.Message,
				Severity:   rec.Severity,
				Timestamp:  rec.Timestamp,
				Resolved:   rec.Resolved,
				ResolvedAt: rec.ResolvedAt,
			})
		}
	}
	if len(pending) > 0 {
		var rec pendingRecord
		if err := json.Unmarshal(pending, &rec); err != nil {
			return nil, fmt.Errorf("error unmarshaling pending command: %w", err)
		}
		s.PendingCommand = &screen.PendingCommand{Command: rec.Command, LogEntryID: rec.LogEntryID, IssuedAt: rec.IssuedAt}
	}
	return &s, nil
}
