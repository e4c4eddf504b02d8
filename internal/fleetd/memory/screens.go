// Package memory provides process-local repositories used for development
// and tests. Every read returns a copy so callers can't mutate stored state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// ScreenRepository is a screen.Repository backed by a map
type ScreenRepository struct {
	mu      sync.RWMutex
	screens map[uuid.UUID]*screen.Screen
}

// NewScreenRepository creates an empty repository
func NewScreenRepository() *ScreenRepository {
	return &ScreenRepository{screens: make(map[uuid.UUID]*screen.Screen)}
}

// Save inserts a new screen at version 1 or updates an existing one when
// the caller's version matches
func (r *ScreenRepository) Save(_ context.Context, s *screen.Screen) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, other := range r.screens {
		if id == s.ID {
			continue
		}
		if other.Name == s.Name {
			return screen.ErrNameTaken{Name: s.Name}
		}
		if s.InWall() && other.InWall() &&
			other.Wall.WallName == s.Wall.WallName && other.Wall.Position == s.Wall.Position {
			return screen.ErrPositionTaken{WallName: s.Wall.WallName, Position: s.Wall.Position, HolderID: id.String()}
		}
	}

	existing, ok := r.screens[s.ID]
	switch {
	case !ok && s.Version != 0:
		return screen.ErrNotFound{ID: s.ID.String()}
	case ok && existing.Version != s.Version:
		return screen.ErrVersionMismatch{ID: s.ID.String()}
	}

	s.Version++
	r.screens[s.ID] = cloneScreen(s)
	return nil
}

// FindByID retrieves a screen by ID
func (r *ScreenRepository) FindByID(_ context.Context, id uuid.UUID) (*screen.Screen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.screens[id]
	if !ok {
		return nil, screen.ErrNotFound{ID: id.String()}
	}
	return cloneScreen(s), nil
}

// FindByName retrieves a screen by name
func (r *ScreenRepository) FindByName(_ context.Context, name string) (*screen.Screen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.screens {
		if s.Name == name {
			return cloneScreen(s), nil
		}
	}
	return nil, screen.ErrNotFound{ID: name}
}

// FindByWallPosition returns the enabled wall member at pos
func (r *ScreenRepository) FindByWallPosition(_ context.Context, wallName string, pos screen.Position) (*screen.Screen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.screens {
		if s.InWall() && s.Wall.WallName == wallName && s.Wall.Position == pos {
			return cloneScreen(s), nil
		}
	}
	return nil, screen.ErrNotFound{ID: wallName}
}

// List returns matching screens ordered by name
func (r *ScreenRepository) List(_ context.Context, filter screen.Filter) ([]*screen.Screen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*screen.Screen, 0, len(r.screens))
	for _, s := range r.screens {
		if filter.RestaurantID != "" && s.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.WallName != "" && (!s.InWall() || s.Wall.WallName != filter.WallName) {
			continue
		}
		if filter.Group != "" && !s.HasGroup(filter.Group) {
			continue
		}
		out = append(out, cloneScreen(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListWallNames returns the sorted distinct wall names in use
func (r *ScreenRepository) ListWallNames(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, s := range r.screens {
		if s.InWall() {
			seen[s.Wall.WallName] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a screen
func (r *ScreenRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.screens[id]; !ok {
		return screen.ErrNotFound{ID: id.String()}
	}
	delete(r.screens, id)
	return nil
}

func cloneScreen(s *screen.Screen) *screen.Screen {
	c := *s
	if s.Wall != nil {
		w := *s.Wall
		c.Wall = &w
	}
	if s.LastHeartbeat != nil {
		t := *s.LastHeartbeat
		c.LastHeartbeat = &t
	}
	if s.PendingCommand != nil {
		p := *s.PendingCommand
		c.PendingCommand = &p
	}
	c.Groups = append([]string(nil), s.Groups...)
	c.Issues = make([]screen.Issue, len(s.Issues))
	for i, is := range s.Issues {
		c.Issues[i] = is
		if is.ResolvedAt != nil {
			t := *is.ResolvedAt
			c.Issues[i].ResolvedAt = &t
		}
	}
	return &c
}
