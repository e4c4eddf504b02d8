// Package service implements the business logic for the screen registry
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// maxSaveAttempts bounds compare-and-swap retries for a single mutation
const maxSaveAttempts = 3

// errUnchanged lets a mutation report that nothing needs saving
var errUnchanged = errors.New("unchanged")

// Service implements screen.Service
type Service struct {
	repo      screen.Repository
	publisher events.Publisher
	clock     clock.Clock
	logger    zerolog.Logger
}

// New creates a new screen service instance
func New(repo screen.Repository, publisher events.Publisher, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		logger:    logger.With().Str("component", "screen-service").Logger(),
	}
}

// Create provisions a new screen
func (s *Service) Create(ctx context.Context, req screen.CreateRequest) (*screen.Screen, error) {
	const op = "ScreenService.Create"

	sc, err := screen.NewScreen(req.RestaurantID, req.Name, req.HeartbeatInterval, req.Wall)
	if err != nil {
		return nil, werrors.NewError(werrors.CodeInvalidInput, err.Error(), op, err)
	}
	now := s.clock.Now()
	sc.SetGroups(req.Groups, now)
	sc.CreatedAt = now
	sc.UpdatedAt = now

	if err := s.checkPosition(ctx, op, sc.ID, sc.Wall); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, sc); err != nil {
		if werrors.IsConflict(err) {
			return nil, werrors.NewError(werrors.CodeConflict, "Screen name or wall position already in use", op, err)
		}
		return nil, werrors.NewError("SAVE_FAILED", "Failed to save screen", op, err)
	}

	s.logger.Info().
		Str("screenId", sc.ID.String()).
		Str("name", sc.Name).
		Str("operation", op).
		Msg("screen created")

	s.publish(ctx, events.Event{
		Type:      events.ScreenCreated,
		ScreenID:  sc.ID,
		Timestamp: now,
		Data:      map[string]string{"name": sc.Name},
	})

	return sc, nil
}

// Get retrieves a screen by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*screen.Screen, error) {
	const op = "ScreenService.Get"

	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(op, id.String(), err)
	}
	return sc, nil
}

// GetByName retrieves a screen by name
func (s *Service) GetByName(ctx context.Context, name string) (*screen.Screen, error) {
	const op = "ScreenService.GetByName"

	sc, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, lookupError(op, name, err)
	}
	return sc, nil
}

// List retrieves screens matching the filter
func (s *Service) List(ctx context.Context, filter screen.Filter) ([]*screen.Screen, error) {
	const op = "ScreenService.List"

	screens, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, werrors.NewError("LIST_FAILED", "Failed to list screens", op, err)
	}
	return screens, nil
}

// Delete removes a screen
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "ScreenService.Delete"

	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(op, id.String(), err)
	}

	s.logger.Info().
		Str("screenId", id.String()).
		Str("operation", op).
		Msg("screen deleted")

	s.publish(ctx, events.Event{
		Type:      events.ScreenDeleted,
		ScreenID:  id,
		Timestamp: s.clock.Now(),
	})
	return nil
}

// mutate loads a screen, applies fn and saves it, retrying on version
// conflicts so concurrent writers land as last-writer-wins per screen.
func (s *Service) mutate(ctx context.Context, op string, id uuid.UUID, fn func(*screen.Screen, time.Time) error) (*screen.Screen, error) {
	for attempt := 1; ; attempt++ {
		sc, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, lookupError(op, id.String(), err)
		}

		if err := fn(sc, s.clock.Now()); err != nil {
			if errors.Is(err, errUnchanged) {
				return sc, nil
			}
			return nil, err
		}

		err = s.repo.Save(ctx, sc)
		if err == nil {
			return sc, nil
		}
		if werrors.IsVersionMismatch(err) && attempt < maxSaveAttempts {
			s.logger.Debug().
				Str("screenId", id.String()).
				Int("attempt", attempt).
				Str("operation", op).
				Msg("version conflict, retrying")
			continue
		}
		return nil, saveError(op, err)
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Str("type", string(event.Type)).
			Str("screenId", event.ScreenID.String()).
			Msg("failed to publish event")
	}
}

func lookupError(op, ref string, err error) error {
	if werrors.IsNotFound(err) {
		return werrors.NewError(werrors.CodeNotFound, fmt.Sprintf("Screen not found: %s", ref), op, err)
	}
	return werrors.NewError("LOOKUP_FAILED", "Failed to retrieve screen", op, err)
}

func saveError(op string, err error) error {
	switch {
	case werrors.IsVersionMismatch(err):
		return werrors.NewError(werrors.CodeVersionConflict, "Screen was modified", op, err)
	case werrors.IsConflict(err):
		return werrors.NewError(werrors.CodeConflict, "Screen conflicts with an existing screen", op, err)
	default:
		return werrors.NewError("SAVE_FAILED", "Failed to save screen", op, err)
	}
}
