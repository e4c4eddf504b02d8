// Package wall composes screens bound to a named grid into a media wall
package wall

import (
	"fmt"
	"sort"
	"time"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/health"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// Wall is a snapshot of the screens bound to one wall name
type Wall struct {
	Name  string
	Grid  screen.GridSize
	cells map[screen.Position]*screen.Screen
}

// Cell is a bound grid position
type Cell struct {
	Position screen.Position
	Screen   *screen.Screen
}

// Compose builds a wall from the screens bound to name. Screens bound to
// other walls are ignored. Two screens on one cell is a conflict; screens
// disagreeing on the grid size is a validation error.
func Compose(name string, screens []*screen.Screen) (*Wall, error) {
	const op = "Wall.Compose"

	w := &Wall{Name: name, cells: make(map[screen.Position]*screen.Screen)}
	first := true
	for _, s := range screens {
		if !s.InWall() || s.Wall.WallName != name {
			continue
		}
		cfg := s.Wall
		if first {
			w.Grid = cfg.GridSize
			first = false
		} else if cfg.GridSize != w.Grid {
			return nil, werrors.Validation(op, fmt.Sprintf(
				"screen %s reports grid %dx%d, wall %q is %dx%d",
				s.Name, cfg.GridSize.Rows, cfg.GridSize.Cols, name, w.Grid.Rows, w.Grid.Cols))
		}
		if !w.Grid.Contains(cfg.Position) {
			return nil, werrors.Validation(op, fmt.Sprintf(
				"screen %s position (%d,%d) lies outside the grid", s.Name, cfg.Position.Row, cfg.Position.Col))
		}
		if holder, ok := w.cells[cfg.Position]; ok {
			taken := screen.ErrPositionTaken{WallName: name, Position: cfg.Position, HolderID: holder.ID.String()}
			return nil, werrors.NewError(werrors.CodeConflict, taken.Error(), op, taken)
		}
		w.cells[cfg.Position] = s
	}
	return w, nil
}

// Len is the number of bound screens
func (w *Wall) Len() int {
	return len(w.cells)
}

// Capacity is rows x cols
func (w *Wall) Capacity() int {
	return w.Grid.Cells()
}

// Complete reports whether every grid position has a screen
func (w *Wall) Complete() bool {
	return w.Capacity() > 0 && len(w.cells) == w.Capacity()
}

// At returns the screen at a grid position
func (w *Wall) At(row, col int) (*screen.Screen, bool) {
	s, ok := w.cells[screen.Position{Row: row, Col: col}]
	return s, ok
}

// Missing lists empty positions in row-major order
func (w *Wall) Missing() []screen.Position {
	var out []screen.Position
	for r := 0; r < w.Grid.Rows; r++ {
		for c := 0; c < w.Grid.Cols; c++ {
			p := screen.Position{Row: r, Col: c}
			if _, ok := w.cells[p]; !ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// Cells lists bound positions in row-major order
func (w *Wall) Cells() []Cell {
	out := make([]Cell, 0, len(w.cells))
	for p, s := range w.cells {
		out = append(out, Cell{Position: p, Screen: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position.Row != out[j].Position.Row {
			return out[i].Position.Row < out[j].Position.Row
		}
		return out[i].Position.Col < out[j].Position.Col
	})
	return out
}

// Screens lists bound screens in row-major order
func (w *Wall) Screens() []*screen.Screen {
	cells := w.Cells()
	out := make([]*screen.Screen, len(cells))
	for i, c := range cells {
		out[i] = c.Screen
	}
	return out
}

// Health aggregates member status at now. The counts are a snapshot.
func (w *Wall) Health(now time.Time) health.Summary {
	return health.Summarize(w.Screens(), now)
}
