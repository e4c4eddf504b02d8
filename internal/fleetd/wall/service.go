package wall

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
	"github.com/piragazh/feasto-signage/internal/fleetd/timeline"
)

// MaxCells bounds the size of a provisioned wall
const MaxCells = 256

// ScreenStore is the read side of the screen registry
type ScreenStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*screen.Screen, error)
	List(ctx context.Context, filter screen.Filter) ([]*screen.Screen, error)
	ListWallNames(ctx context.Context) ([]string, error)
}

// Provisioner creates and removes screens
type Provisioner interface {
	Create(ctx context.Context, req screen.CreateRequest) (*screen.Screen, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContentSource lists the content a timeline is built from
type ContentSource interface {
	ListItems(ctx context.Context, filter content.ItemFilter) ([]*content.Item, error)
	ListPlaylists(ctx context.Context, wallName string) ([]*content.Playlist, error)
}

// ProvisionRequest creates a rows x cols wall of new screens
type ProvisionRequest struct {
	Name              string
	Rows              int
	Cols              int
	RestaurantID      string
	NamePrefix        string
	HeartbeatInterval int
	BezelCompensation int
	Groups            []string
}

// Service composes walls and drives their shared playback
type Service struct {
	screens     ScreenStore
	provisioner Provisioner
	content     ContentSource
	clock       clock.Clock
	logger      zerolog.Logger

	mu      sync.Mutex
	players map[string]*timeline.Player

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a wall service
func NewService(screens ScreenStore, provisioner Provisioner, src ContentSource, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		screens:     screens,
		provisioner: provisioner,
		content:     src,
		clock:       clk,
		logger:      logger.With().Str("component", "wall-service").Logger(),
		players:     make(map[string]*timeline.Player),
		rng:         rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

// List composes every wall with at least one bound screen. A wall whose
// screens disagree on its layout is logged and left out.
func (s *Service) List(ctx context.Context) ([]*Wall, error) {
	const op = "WallService.List"

	names, err := s.screens.ListWallNames(ctx)
	if err != nil {
		return nil, werrors.NewError("LIST_FAILED", "Failed to list walls", op, err)
	}
	walls := make([]*Wall, 0, len(names))
	for _, name := range names {
		w, err := s.Get(ctx, name)
		if err != nil {
			if werrors.IsNotFound(err) {
				continue
			}
			if werrors.IsInvalidInput(err) || werrors.IsConflict(err) {
				s.logger.Warn().Err(err).
					Str("wall", name).
					Str("operation", op).
					Msg("skipping wall that does not compose")
				continue
			}
			return nil, err
		}
		walls = append(walls, w)
	}
	return walls, nil
}

// Get composes a wall; a name with no bound screens is not found
func (s *Service) Get(ctx context.Context, name string) (*Wall, error) {
	const op = "WallService.Get"

	screens, err := s.screens.List(ctx, screen.Filter{WallName: name})
	if err != nil {
		return nil, werrors.NewError("LOOKUP_FAILED", "Failed to list wall screens", op, err)
	}
	w, err := Compose(name, screens)
	if err != nil {
		return nil, err
	}
	if w.Len() == 0 {
		return nil, werrors.NewError(werrors.CodeNotFound, fmt.Sprintf("Wall not found: %s", name), op, werrors.ErrNotFound)
	}
	return w, nil
}

// Provision creates one screen per grid cell. Screens created before a
// failure are removed again.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (*Wall, error) {
	const op = "WallService.Provision"

	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		return nil, werrors.Validation(op, "wall name is required")
	case req.Rows < 1 || req.Cols < 1:
		return nil, werrors.Validation(op, "grid size must be at least 1x1")
	case req.Rows*req.Cols > MaxCells:
		return nil, werrors.Validation(op, fmt.Sprintf("grid of %d cells exceeds the limit of %d", req.Rows*req.Cols, MaxCells))
	}

	existing, err := s.screens.List(ctx, screen.Filter{WallName: req.Name})
	if err != nil {
		return nil, werrors.NewError("LOOKUP_FAILED", "Failed to list wall screens", op, err)
	}
	if len(existing) > 0 {
		return nil, werrors.NewError(werrors.CodeConflict,
			fmt.Sprintf("Wall %q already has %d screens", req.Name, len(existing)), op, werrors.ErrConflict)
	}

	prefix := req.NamePrefix
	if prefix == "" {
		prefix = req.Name
	}
	grid := screen.GridSize{Rows: req.Rows, Cols: req.Cols}

	created := make([]*screen.Screen, 0, grid.Cells())
	for r := 0; r < req.Rows; r++ {
		for c := 0; c < req.Cols; c++ {
			sc, err := s.provisioner.Create(ctx, screen.CreateRequest{
				RestaurantID:      req.RestaurantID,
				Name:              fmt.Sprintf("%s-r%dc%d", prefix, r+1, c+1),
				HeartbeatInterval: req.HeartbeatInterval,
				Groups:            req.Groups,
				Wall: &screen.WallConfig{
					Enabled:           true,
					WallName:          req.Name,
					Position:          screen.Position{Row: r, Col: c},
					GridSize:          grid,
					BezelCompensation: req.BezelCompensation,
				},
			})
			if err != nil {
				s.rollback(ctx, op, created)
				return nil, err
			}
			created = append(created, sc)
		}
	}

	s.logger.Info().
		Str("wall", req.Name).
		Int("rows", req.Rows).
		Int("cols", req.Cols).
		Str("operation", op).
		Msg("wall provisioned")

	return Compose(req.Name, created)
}

func (s *Service) rollback(ctx context.Context, op string, created []*screen.Screen) {
	for _, sc := range created {
		if err := s.provisioner.Delete(ctx, sc.ID); err != nil {
			s.logger.Error().Err(err).
				Str("screenId", sc.ID.String()).
				Str("operation", op).
				Msg("failed to roll back provisioned screen")
		}
	}
}

// Timeline resolves the wall's playback plan at the current time
func (s *Service) Timeline(ctx context.Context, name string) (*timeline.Timeline, error) {
	if _, err := s.Get(ctx, name); err != nil {
		return nil, err
	}
	return s.resolve(ctx, name, s.clock.Now())
}

// NowPlaying reads the wall's shared playback cursor. Every screen of a wall
// reads the same player.
func (s *Service) NowPlaying(ctx context.Context, name string) (timeline.Playback, error) {
	if _, err := s.Get(ctx, name); err != nil {
		return timeline.Playback{}, err
	}
	return s.player(name).Current(ctx)
}

// ScreenTimeline resolves what a single screen plays: its own content when
// any is eligible, otherwise its wall's timeline
func (s *Service) ScreenTimeline(ctx context.Context, id uuid.UUID) (*timeline.Timeline, error) {
	const op = "WallService.ScreenTimeline"

	sc, err := s.screens.FindByID(ctx, id)
	if err != nil {
		if werrors.IsNotFound(err) {
			return nil, werrors.NewError(werrors.CodeNotFound, fmt.Sprintf("Screen not found: %s", id), op, err)
		}
		return nil, werrors.NewError("LOOKUP_FAILED", "Failed to retrieve screen", op, err)
	}

	now := s.clock.Now()
	target := content.ScreenTarget(sc.ID)
	items, err := s.content.ListItems(ctx, content.ItemFilter{Kind: content.TargetScreen, ScreenID: sc.ID})
	if err != nil {
		return nil, werrors.NewError("LOOKUP_FAILED", "Failed to list screen content", op, err)
	}
	tl := timeline.Build(target, items, now)
	if !tl.Idle() || !sc.InWall() {
		return tl, nil
	}
	return s.resolve(ctx, sc.Wall.WallName, now)
}

func (s *Service) player(name string) *timeline.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[name]
	if !ok {
		p = timeline.NewPlayer(func(ctx context.Context, at time.Time) (*timeline.Timeline, error) {
			return s.resolve(ctx, name, at)
		}, s.clock, s.logger.With().Str("wall", name).Logger())
		s.players[name] = p
	}
	return p
}

// resolve builds a wall timeline at an instant. The highest-priority eligible
// playlist drives the wall when there is one; otherwise all eligible wall
// content plays.
func (s *Service) resolve(ctx context.Context, name string, at time.Time) (*timeline.Timeline, error) {
	const op = "WallService.resolve"

	items, err := s.content.ListItems(ctx, content.ItemFilter{Kind: content.TargetWall, WallName: name})
	if err != nil {
		return nil, werrors.NewError("LOOKUP_FAILED", "Failed to list wall content", op, err)
	}
	playlists, err := s.content.ListPlaylists(ctx, name)
	if err != nil {
		return nil, werrors.NewError("LOOKUP_FAILED", "Failed to list wall playlists", op, err)
	}

	if p := activePlaylist(playlists, at); p != nil {
		s.rngMu.Lock()
		defer s.rngMu.Unlock()
		return timeline.BuildPlaylist(p, items, at, s.rng), nil
	}
	return timeline.Build(content.WallTarget(name), items, at), nil
}

func activePlaylist(playlists []*content.Playlist, at time.Time) *content.Playlist {
	eligible := make([]*content.Playlist, 0, len(playlists))
	for _, p := range playlists {
		if p.Eligible(at) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].Name < eligible[j].Name
	})
	return eligible[0]
}
