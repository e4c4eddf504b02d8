package content

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines content persistence. Saves compare-and-swap on Version
// and bump it on success; version 0 inserts.
type Repository interface {
	SaveItem(ctx context.Context, item *Item) error
	FindItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	SavePlaylist(ctx context.Context, p *Playlist) error
	FindPlaylist(ctx context.Context, id uuid.UUID) (*Playlist, error)
	ListPlaylists(ctx context.Context, wallName string) ([]*Playlist, error)
	DeletePlaylist(ctx context.Context, id uuid.UUID) error
}

// ItemFilter selects items by target. Zero fields match everything.
type ItemFilter struct {
	Kind     TargetKind
	WallName string
	ScreenID uuid.UUID
}

// Matches reports whether item passes the filter
func (f ItemFilter) Matches(item *Item) bool {
	if f.Kind != "" && item.Target.Kind != f.Kind {
		return false
	}
	if f.WallName != "" && item.Target.WallName != f.WallName {
		return false
	}
	if f.ScreenID != uuid.Nil && item.Target.ScreenID != f.ScreenID {
		return false
	}
	return true
}

// Service defines content library operations
type Service interface {
	CreateItem(ctx context.Context, item *Item) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	CreatePlaylist(ctx context.Context, p *Playlist) (*Playlist, error)
	UpdatePlaylist(ctx context.Context, p *Playlist) (*Playlist, error)
	GetPlaylist(ctx context.Context, id uuid.UUID) (*Playlist, error)
	ListPlaylists(ctx context.Context, wallName string) ([]*Playlist, error)
	DeletePlaylist(ctx context.Context, id uuid.UUID) error
}
