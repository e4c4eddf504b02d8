package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	"github.com/piragazh/feasto-signage/internal/fleetd/schedule"
)

// ContentRepository is a content.Repository backed by maps
type ContentRepository struct {
	mu        sync.RWMutex
	items     map[uuid.UUID]*content.Item
	playlists map[uuid.UUID]*content.Playlist
}

// NewContentRepository creates an empty content library
func NewContentRepository() *ContentRepository {
	return &ContentRepository{
		items:     make(map[uuid.UUID]*content.Item),
		playlists: make(map[uuid.UUID]*content.Playlist),
	}
}

// SaveItem inserts or compare-and-swaps an item
func (r *ContentRepository) SaveItem(_ context.Context, item *content.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	switch {
	case !ok && item.Version != 0:
		return content.ErrNotFound{Kind: "content item", ID: item.ID.String()}
	case ok && existing.Version != item.Version:
		return content.ErrVersionMismatch{ID: item.ID.String()}
	}

	item.Version++
	r.items[item.ID] = cloneItem(item)
	return nil
}

// FindItem retrieves an item
func (r *ContentRepository) FindItem(_ context.Context, id uuid.UUID) (*content.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, content.ErrNotFound{Kind: "content item", ID: id.String()}
	}
	return cloneItem(item), nil
}

// ListItems returns matching items ordered by display order then creation
func (r *ContentRepository) ListItems(_ context.Context, filter content.ItemFilter) ([]*content.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*content.Item, 0, len(r.items))
	for _, item := range r.items {
		if filter.Matches(item) {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// DeleteItem removes an item
func (r *ContentRepository) DeleteItem(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return content.ErrNotFound{Kind: "content item", ID: id.String()}
	}
	delete(r.items, id)
	return nil
}

// SavePlaylist inserts or compare-and-swaps a playlist. Names are unique per wall.
func (r *ContentRepository) SavePlaylist(_ context.Context, p *content.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, other := range r.playlists {
		if id != p.ID && other.WallName == p.WallName && other.Name == p.Name {
			return content.ErrPlaylistNameTaken{WallName: p.WallName, Name: p.Name}
		}
	}

	existing, ok := r.playlists[p.ID]
	switch {
	case !ok && p.Version != 0:
		return content.ErrNotFound{Kind: "playlist", ID: p.ID.String()}
	case ok && existing.Version != p.Version:
		return content.ErrVersionMismatch{ID: p.ID.String()}
	}

	p.Version++
	r.playlists[p.ID] = clonePlaylist(p)
	return nil
}

// FindPlaylist retrieves a playlist
func (r *ContentRepository) FindPlaylist(_ context.Context, id uuid.UUID) (*content.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.playlists[id]
	if !ok {
		return nil, content.ErrNotFound{Kind: "playlist", ID: id.String()}
	}
	return clonePlaylist(p), nil
}

// ListPlaylists returns a wall's playlists by name, or every playlist when
// wallName is empty
func (r *ContentRepository) ListPlaylists(_ context.Context, wallName string) ([]*content.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*content.Playlist, 0)
	for _, p := range r.playlists {
		if wallName == "" || p.WallName == wallName {
			out = append(out, clonePlaylist(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WallName != out[j].WallName {
			return out[i].WallName < out[j].WallName
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeletePlaylist removes a playlist
func (r *ContentRepository) DeletePlaylist(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.playlists[id]; !ok {
		return content.ErrNotFound{Kind: "playlist", ID: id.String()}
	}
	delete(r.playlists, id)
	return nil
}

func cloneItem(item *content.Item) *content.Item {
	cp := *item
	cp.Schedule = cloneSchedule(item.Schedule)
	return &cp
}

func clonePlaylist(p *content.Playlist) *content.Playlist {
	cp := *p
	cp.ContentIDs = append([]uuid.UUID(nil), p.ContentIDs...)
	cp.Schedule = cloneSchedule(p.Schedule)
	return &cp
}

func cloneSchedule(s schedule.Spec) schedule.Spec {
	cp := s
	cp.StartDate = cloneTime(s.StartDate)
	cp.EndDate = cloneTime(s.EndDate)
	if s.Recurring != nil {
		rec := *s.Recurring
		rec.DaysOfWeek = append([]int(nil), s.Recurring.DaysOfWeek...)
		rec.TimeRanges = append([]schedule.TimeRange(nil), s.Recurring.TimeRanges...)
		cp.Recurring = &rec
	}
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
