package content

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/schedule"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// ScreenFinder resolves screen targets
type ScreenFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*screen.Screen, error)
}

type contentService struct {
	repo      Repository
	screens   ScreenFinder
	publisher events.Publisher
	clock     clock.Clock
	logger    zerolog.Logger
}

// NewService creates the content library service
func NewService(repo Repository, screens ScreenFinder, publisher events.Publisher, clk clock.Clock, logger zerolog.Logger) Service {
	return &contentService{
		repo:      repo,
		screens:   screens,
		publisher: publisher,
		clock:     clk,
		logger:    logger.With().Str("component", "content-service").Logger(),
	}
}

func (s *contentService) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	const op = "ContentService.CreateItem"

	if err := s.checkItem(ctx, op, item); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	item.ID = uuid.New()
	item.Version = 0
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, saveError(op, "content item", err)
	}
	s.changed(ctx, op, "item", "created", item.ID, item.Target.String())
	return item, nil
}

func (s *contentService) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	const op = "ContentService.UpdateItem"

	existing, err := s.repo.FindItem(ctx, item.ID)
	if err != nil {
		return nil, lookupError(op, "content item", item.ID, err)
	}
	if err := s.checkItem(ctx, op, item); err != nil {
		return nil, err
	}
	if item.Version == 0 {
		item.Version = existing.Version
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, saveError(op, "content item", err)
	}
	s.changed(ctx, op, "item", "updated", item.ID, item.Target.String())
	return item, nil
}

func (s *contentService) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	const op = "ContentService.GetItem"

	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return nil, lookupError(op, "content item", id, err)
	}
	return item, nil
}

func (s *contentService) ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error) {
	const op = "ContentService.ListItems"

	items, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, werrors.NewError("LIST_FAILED", "Failed to list content items", op, err)
	}
	return items, nil
}

func (s *contentService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	const op = "ContentService.DeleteItem"

	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return lookupError(op, "content item", id, err)
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return lookupError(op, "content item", id, err)
	}
	s.changed(ctx, op, "item", "deleted", id, item.Target.String())
	return nil
}

func (s *contentService) CreatePlaylist(ctx context.Context, p *Playlist) (*Playlist, error) {
	const op = "ContentService.CreatePlaylist"

	if err := s.checkPlaylist(ctx, op, p); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	p.ID = uuid.New()
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.SavePlaylist(ctx, p); err != nil {
		return nil, saveError(op, "playlist", err)
	}
	s.changed(ctx, op, "playlist", "created", p.ID, "wall/"+p.WallName)
	return p, nil
}

func (s *contentService) UpdatePlaylist(ctx context.Context, p *Playlist) (*Playlist, error) {
	const op = "ContentService.UpdatePlaylist"

	existing, err := s.repo.FindPlaylist(ctx, p.ID)
	if err != nil {
		return nil, lookupError(op, "playlist", p.ID, err)
	}
	if err := s.checkPlaylist(ctx, op, p); err != nil {
		return nil, err
	}
	if p.Version == 0 {
		p.Version = existing.Version
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.clock.Now()

	if err := s.repo.SavePlaylist(ctx, p); err != nil {
		return nil, saveError(op, "playlist", err)
	}
	s.changed(ctx, op, "playlist", "updated", p.ID, "wall/"+p.WallName)
	return p, nil
}

func (s *contentService) GetPlaylist(ctx context.Context, id uuid.UUID) (*Playlist, error) {
	const op = "ContentService.GetPlaylist"

	p, err := s.repo.FindPlaylist(ctx, id)
	if err != nil {
		return nil, lookupError(op, "playlist", id, err)
	}
	return p, nil
}

func (s *contentService) ListPlaylists(ctx context.Context, wallName string) ([]*Playlist, error) {
	const op = "ContentService.ListPlaylists"

	lists, err := s.repo.ListPlaylists(ctx, wallName)
	if err != nil {
		return nil, werrors.NewError("LIST_FAILED", "Failed to list playlists", op, err)
	}
	return lists, nil
}

func (s *contentService) DeletePlaylist(ctx context.Context, id uuid.UUID) error {
	const op = "ContentService.DeletePlaylist"

	p, err := s.repo.FindPlaylist(ctx, id)
	if err != nil {
		return lookupError(op, "playlist", id, err)
	}
	if err := s.repo.DeletePlaylist(ctx, id); err != nil {
		return lookupError(op, "playlist", id, err)
	}
	s.changed(ctx, op, "playlist", "deleted", id, "wall/"+p.WallName)
	return nil
}

// checkItem validates an item and resolves a screen target
func (s *contentService) checkItem(ctx context.Context, op string, item *Item) error {
	if err := item.Validate(); err != nil {
		return werrors.NewError(werrors.CodeInvalidInput, err.Error(), op, err)
	}
	if item.Target.Kind == TargetScreen {
		if _, err := s.screens.FindByID(ctx, item.Target.ScreenID); err != nil {
			if werrors.IsNotFound(err) {
				return werrors.NewError(werrors.CodeNotFound,
					fmt.Sprintf("Target screen not found: %s", item.Target.ScreenID), op, err)
			}
			return werrors.NewError("LOOKUP_FAILED", "Failed to resolve target screen", op, err)
		}
	}
	s.warnMidnight(op, item.ID, item.Schedule)
	return nil
}

// checkPlaylist validates a playlist and requires every referenced item to
// exist and target the playlist's wall
func (s *contentService) checkPlaylist(ctx context.Context, op string, p *Playlist) error {
	if err := p.Validate(); err != nil {
		return werrors.NewError(werrors.CodeInvalidInput, err.Error(), op, err)
	}
	seen := make(map[uuid.UUID]bool, len(p.ContentIDs))
	for _, id := range p.ContentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		item, err := s.repo.FindItem(ctx, id)
		if err != nil {
			if werrors.IsNotFound(err) {
				return werrors.NewError(werrors.CodeInvalidInput,
					fmt.Sprintf("Playlist references unknown content item %s", id), op, werrors.ErrInvalidInput)
			}
			return werrors.NewError("LOOKUP_FAILED", "Failed to resolve playlist content", op, err)
		}
		if item.Target.Kind != TargetWall || item.Target.WallName != p.WallName {
			return werrors.NewError(werrors.CodeInvalidInput,
				fmt.Sprintf("Content item %s does not target wall %q", id, p.WallName), op, werrors.ErrInvalidInput)
		}
	}
	s.warnMidnight(op, p.ID, p.Schedule)
	return nil
}

func (s *contentService) warnMidnight(op string, id uuid.UUID, spec schedule.Spec) {
	for _, tr := range spec.MidnightRanges() {
		s.logger.Warn().
			Str("id", id.String()).
			Str("start", tr.Start).
			Str("end", tr.End).
			Str("operation", op).
			Msg("time range crosses midnight and will never match")
	}
}

func (s *contentService) changed(ctx context.Context, op, kind, action string, id uuid.UUID, target string) {
	s.logger.Info().
		Str("id", id.String()).
		Str("kind", kind).
		Str("target", target).
		Str("operation", op).
		Msgf("%s %s", kind, action)

	event := events.Event{
		Type:      events.ContentChanged,
		Timestamp: s.clock.Now(),
		Data: map[string]string{
			"id":     id.String(),
			"kind":   kind,
			"action": action,
			"target": target,
		},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("id", id.String()).Msg("failed to publish event")
	}
}

func lookupError(op, what string, id uuid.UUID, err error) error {
	if werrors.IsNotFound(err) {
		return werrors.NewError(werrors.CodeNotFound, fmt.Sprintf("%s not found: %s", what, id), op, err)
	}
	return werrors.NewError("LOOKUP_FAILED", "Failed to retrieve "+what, op, err)
}

func saveError(op, what string, err error) error {
	switch {
	case werrors.IsVersionMismatch(err):
		return werrors.NewError(werrors.CodeVersionConflict, what+" was modified", op, err)
	case werrors.IsConflict(err):
		return werrors.NewError(werrors.CodeConflict, what+" conflicts with an existing one", op, err)
	case werrors.IsNotFound(err):
		return werrors.NewError(werrors.CodeNotFound, what+" not found", op, err)
	default:
		return werrors.NewError("SAVE_FAILED", "Failed to save "+what, op, err)
	}
}
