package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// UpdateWallConfig binds, moves or unbinds a screen's wall position
func (s *Service) UpdateWallConfig(ctx context.Context, id uuid.UUID, wall *screen.WallConfig) (*screen.Screen, error) {
	const op = "ScreenService.UpdateWallConfig"

	if err := screen.ValidateWall(wall); err != nil {
		return nil, werrors.NewError(werrors.CodeInvalidInput, err.Error(), op, err)
	}
	if err := s.checkPosition(ctx, op, id, wall); err != nil {
		return nil, err
	}

	sc, err := s.mutate(ctx, op, id, func(sc *screen.Screen, now time.Time) error {
		return sc.BindWall(wall, now)
	})
	if err != nil {
		return nil, err
	}

	data := map[string]string{}
	if sc.InWall() {
		data["wallName"] = sc.Wall.WallName
	}
	s.publish(ctx, events.Event{
		Type:      events.ScreenWallChanged,
		ScreenID:  id,
		Timestamp: s.clock.Now(),
		Data:      data,
	})
	return sc, nil
}

// SetGroups replaces a screen's labels
func (s *Service) SetGroups(ctx context.Context, id uuid.UUID, groups []string) (*screen.Screen, error) {
	const op = "ScreenService.SetGroups"

	return s.mutate(ctx, op, id, func(sc *screen.Screen, now time.Time) error {
		sc.SetGroups(groups, now)
		return nil
	})
}

// checkPosition rejects a wall binding whose cell is held by another screen
// or whose grid size disagrees with the screens already on the wall
func (s *Service) checkPosition(ctx context.Context, op string, self uuid.UUID, wall *screen.WallConfig) error {
	if wall == nil || !wall.Enabled {
		return nil
	}

	holder, err := s.repo.FindByWallPosition(ctx, wall.WallName, wall.Position)
	if err != nil {
		if !werrors.IsNotFound(err) {
			return werrors.NewError("LOOKUP_FAILED", "Failed to check wall position", op, err)
		}
		return s.checkGrid(ctx, op, self, wall)
	}
	if holder.ID != self {
		taken := screen.ErrPositionTaken{
			WallName: wall.WallName,
			Position: wall.Position,
			HolderID: holder.ID.String(),
		}
		return werrors.NewError(werrors.CodeConflict, taken.Error(), op, taken)
	}
	return s.checkGrid(ctx, op, self, wall)
}

func (s *Service) checkGrid(ctx context.Context, op string, self uuid.UUID, wall *screen.WallConfig) error {
	members, err := s.repo.List(ctx, screen.Filter{WallName: wall.WallName})
	if err != nil {
		return werrors.NewError("LOOKUP_FAILED", "Failed to list wall screens", op, err)
	}
	for _, m := range members {
		if m.ID == self || !m.InWall() || m.Wall.WallName != wall.WallName {
			continue
		}
		if m.Wall.GridSize != wall.GridSize {
			return werrors.Validation(op, fmt.Sprintf("wall %q is %dx%d, not %dx%d",
				wall.WallName, m.Wall.GridSize.Rows, m.Wall.GridSize.Cols, wall.GridSize.Rows, wall.GridSize.Cols))
		}
		return nil
	}
	return nil
}
