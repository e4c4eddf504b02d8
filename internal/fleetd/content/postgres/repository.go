// Package postgres implements the content library repository using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	"github.com/piragazh/feasto-signage/internal/fleetd/database"
	"github.com/piragazh/feasto-signage/internal/fleetd/schedule"
)

const itemColumns = `
	SELECT id, target_kind, wall_name, screen_id, title, description, media_url,
		media_type, duration, priority, display_order, layer, is_active, schedule,
		sync_enabled, version, created_at, updated_at
	FROM content_items`

const playlistColumns = `
	SELECT id, wall_name, name, content_ids, loop, shuffle, is_active, schedule,
		priority, version, created_at, updated_at
	FROM playlists`

// Repository implements content.Repository
type Repository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewRepository creates a PostgreSQL content repository
func NewRepository(db *sql.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "content-repository").Logger(),
	}
}

// SaveItem inserts a version-0 item or updates one whose version matches
func (r *Repository) SaveItem(ctx context.Context, item *content.Item) error {
	const op = "ContentRepository.SaveItem"

	sched, err := json.Marshal(item.Schedule)
	if err != nil {
		return fmt.Errorf("error marshaling schedule: %w", err)
	}
	wallName, screenID := targetColumns(item.Target)

	if item.Version == 0 {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO content_items (
				id, target_kind, wall_name, screen_id, title, description, media_url,
				media_type, duration, priority, display_order, layer, is_active,
				schedule, sync_enabled, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17)
		`,
			item.ID, string(item.Target.Kind), wallName, screenID, item.Title, item.Description,
			item.MediaURL, string(item.MediaType), item.Duration, item.Priority, item.DisplayOrder,
			item.Layer, item.IsActive, sched, item.SyncEnabled, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).
				Str("contentId", item.ID.String()).
				Str("operation", op).
				Msg("failed to insert content item")
			return database.MapError(err, op)
		}
		item.Version = 1
		return nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE content_items
		SET target_kind = $1, wall_name = $2, screen_id = $3, title = $4,
			description = $5, media_url = $6, media_type = $7, duration = $8,
			priority = $9, display_order = $10, layer = $11, is_active = $12,
			schedule = $13, sync_enabled = $14, updated_at = $15,
			version = version + 1
		WHERE id = $16 AND version = $17
	`,
		string(item.Target.Kind), wallName, screenID, item.Title, item.Description,
		item.MediaURL, string(item.MediaType), item.Duration, item.Priority, item.DisplayOrder,
		item.Layer, item.IsActive, sched, item.SyncEnabled, item.UpdatedAt,
		item.ID, item.Version,
	)
	if err := r.checkUpdate(ctx, op, "content_items", item.ID, result, err); err != nil {
		return err
	}
	item.Version++
	return nil
}

// FindItem retrieves an item
func (r *Repository) FindItem(ctx context.Context, id uuid.UUID) (*content.Item, error) {
	const op = "ContentRepository.FindItem"

	item, err := scanItem(r.db.QueryRowContext(ctx, itemColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, content.ErrNotFound{Kind: "content item", ID: id.String()}
		}
		r.logger.Error().Err(err).
			Str("contentId", id.String()).
			Str("operation", op).
			Msg("failed to find content item")
		return nil, database.MapError(err, op)
	}
	return item, nil
}

// ListItems returns matching items by display order
func (r *Repository) ListItems(ctx context.Context, filter content.ItemFilter) ([]*content.Item, error) {
	const op = "ContentRepository.ListItems"

	var cond database.Conditions
	if filter.Kind != "" {
		cond.Add("target_kind = ?", string(filter.Kind))
	}
	if filter.WallName != "" {
		cond.Add("wall_name = ?", filter.WallName)
	}
	if filter.ScreenID != uuid.Nil {
		cond.Add("screen_id = ?", filter.ScreenID)
	}

	rows, err := r.db.QueryContext(ctx, itemColumns+cond.Where()+` ORDER BY display_order, created_at, id`, cond.Args...)
	if err != nil {
		r.logger.Error().Err(err).Str("operation", op).Msg("failed to query content items")
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var items []*content.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, database.MapError(err, op)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return items, nil
}

// DeleteItem removes an item
func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	const op = "ContentRepository.DeleteItem"
	return r.delete(ctx, op, "content_items", "content item", id)
}

// SavePlaylist inserts a version-0 playlist or updates one whose version matches
func (r *Repository) SavePlaylist(ctx context.Context, p *content.Playlist) error {
	const op = "ContentRepository.SavePlaylist"

	sched, err := json.Marshal(p.Schedule)
	if err != nil {
		return fmt.Errorf("error marshaling schedule: %w", err)
	}
	ids := uuidStrings(p.ContentIDs)

	if p.Version == 0 {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO playlists (
				id, wall_name, name, content_ids, loop, shuffle, is_active,
				schedule, priority, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
		`,
			p.ID, p.WallName, p.Name, pq.Array(ids), p.Loop, p.Shuffle, p.IsActive,
			sched, p.Priority, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).
				Str("playlistId", p.ID.String()).
				Str("operation", op).
				Msg("failed to insert playlist")
			return r.playlistError(err, op, p)
		}
		p.Version = 1
		return nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE playlists
		SET wall_name = $1, name = $2, content_ids = $3, loop = $4, shuffle = $5,
			is_active = $6, schedule = $7, priority = $8, updated_at = $9,
			version = version + 1
		WHERE id = $10 AND version = $11
	`,
		p.WallName, p.Name, pq.Array(ids), p.Loop, p.Shuffle, p.IsActive,
		sched, p.Priority, p.UpdatedAt, p.ID, p.Version,
	)
	if err != nil {
		return r.playlistError(err, op, p)
	}
	if err := r.checkUpdate(ctx, op, "playlists", p.ID, result, nil); err != nil {
		return err
	}
	p.Version++
	return nil
}

// FindPlaylist retrieves a playlist
func (r *Repository) FindPlaylist(ctx context.Context, id uuid.UUID) (*content.Playlist, error) {
	const op = "ContentRepository.FindPlaylist"

	p, err := scanPlaylist(r.db.QueryRowContext(ctx, playlistColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, content.ErrNotFound{Kind: "playlist", ID: id.String()}
		}
		r.logger.Error().Err(err).
			Str("playlistId", id.String()).
			Str("operation", op).
			Msg("failed to find playlist")
		return nil, database.MapError(err, op)
	}
	return p, nil
}

// ListPlaylists returns a wall's playlists, or every playlist for an empty name
func (r *Repository) ListPlaylists(ctx context.Context, wallName string) ([]*content.Playlist, error) {
	const op = "ContentRepository.ListPlaylists"

	var cond database.Conditions
	if wallName != "" {
		cond.Add("wall_name = ?", wallName)
	}

	rows, err := r.db.QueryContext(ctx, playlistColumns+cond.Where()+` ORDER BY wall_name, name`, cond.Args...)
	if err != nil {
		r.logger.Error().Err(err).Str("operation", op).Msg("failed to query playlists")
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var lists []*content.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, database.MapError(err, op)
		}
		lists = append(lists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return lists, nil
}

// DeletePlaylist removes a playlist
func (r *Repository) DeletePlaylist(ctx context.Context, id uuid.UUID) error {
	const op = "ContentRepository.DeletePlaylist"
	return r.delete(ctx, op, "playlists", "playlist", id)
}

// checkUpdate turns a zero-row CAS update into not found or version mismatch
func (r *Repository) checkUpdate(ctx context.Context, op, table string, id uuid.UUID, result sql.Result, err error) error {
	if err != nil {
		r.logger.Error().Err(err).Str("id", id.String()).Str("operation", op).Msg("failed to update")
		return database.MapError(err, op)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.MapError(err, op)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return database.MapError(err, op)
	}
	if !exists {
		kind := "content item"
		if table == "playlists" {
			kind = "playlist"
		}
		return content.ErrNotFound{Kind: kind, ID: id.String()}
	}
	return content.ErrVersionMismatch{ID: id.String()}
}

func (r *Repository) delete(ctx context.Context, op, table, kind string, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("id", id.String()).Str("operation", op).Msg("failed to delete")
		return database.MapError(err, op)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.MapError(err, op)
	}
	if rows == 0 {
		return content.ErrNotFound{Kind: kind, ID: id.String()}
	}
	return nil
}

func (r *Repository) playlistError(err error, op string, p *content.Playlist) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return content.ErrPlaylistNameTaken{WallName: p.WallName, Name: p.Name}
	}
	return database.MapError(err, op)
}

func targetColumns(t content.Target) (sql.NullString, uuid.NullUUID) {
	switch t.Kind {
	case content.TargetWall:
		return sql.NullString{String: t.WallName, Valid: true}, uuid.NullUUID{}
	default:
		return sql.NullString{}, uuid.NullUUID{UUID: t.ScreenID, Valid: true}
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (*content.Item, error) {
	var (
		item      content.Item
		kind      string
		wallName  sql.NullString
		screenID  uuid.NullUUID
		mediaType string
		sched     []byte
	)
	err := row.Scan(
		&item.ID,
		&kind,
		&wallName,
		&screenID,
		&item.Title,
		&item.Description,
		&item.MediaURL,
		&mediaType,
		&item.Duration,
		&item.Priority,
		&item.DisplayOrder,
		&item.Layer,
		&item.IsActive,
		&sched,
		&item.SyncEnabled,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if content.TargetKind(kind) == content.TargetWall {
		item.Target = content.WallTarget(wallName.String)
	} else {
		item.Target = content.ScreenTarget(screenID.UUID)
	}
	item.MediaType = content.MediaType(mediaType)
	if item.Schedule, err = unmarshalSchedule(sched); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanPlaylist(row scanner) (*content.Playlist, error) {
	var (
		p     content.Playlist
		ids   []string
		sched []byte
	)
	err := row.Scan(
		&p.ID,
		&p.WallName,
		&p.Name,
		pq.Array(&ids),
		&p.Loop,
		&p.Shuffle,
		&p.IsActive,
		&sched,
		&p.Priority,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ContentIDs = make([]uuid.UUID, 0, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("error parsing content id %q: %w", s, err)
		}
		p.ContentIDs = append(p.ContentIDs, id)
	}
	if p.Schedule, err = unmarshalSchedule(sched); err != nil {
		return nil, err
	}
	return &p, nil
}

func unmarshalSchedule(b []byte) (schedule.Spec, error) {
	var s schedule.Spec
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("error unmarshaling schedule: %w", err)
	}
	return s, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
