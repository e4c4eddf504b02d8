package content

import (
	"fmt"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// ErrNotFound indicates a content item or playlist lookup failure
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e ErrNotFound) Unwrap() error { return werrors.ErrNotFound }

// ErrVersionMismatch indicates a concurrent modification conflict
type ErrVersionMismatch struct {
	ID string
}

func (e ErrVersionMismatch) Error() string {
	return fmt.Sprintf("version mismatch for %s: concurrent modification detected", e.ID)
}

func (e ErrVersionMismatch) Unwrap() error { return werrors.ErrVersionMismatch }

// ErrInvalidItem indicates a malformed content item
type ErrInvalidItem struct {
	Reason string
}

func (e ErrInvalidItem) Error() string {
	return fmt.Sprintf("invalid content item: %s", e.Reason)
}

func (e ErrInvalidItem) Unwrap() error { return werrors.ErrInvalidInput }

// ErrInvalidPlaylist indicates a malformed playlist
type ErrInvalidPlaylist struct {
	Reason string
}

func (e ErrInvalidPlaylist) Error() string {
	return fmt.Sprintf("invalid playlist: %s", e.Reason)
}

func (e ErrInvalidPlaylist) Unwrap() error { return werrors.ErrInvalidInput }

// ErrPlaylistNameTaken indicates a wall already has a playlist with the name
type ErrPlaylistNameTaken struct {
	WallName string
	Name     string
}

func (e ErrPlaylistNameTaken) Error() string {
	return fmt.Sprintf("wall %q already has a playlist named %q", e.WallName, e.Name)
}

func (e ErrPlaylistNameTaken) Unwrap() error { return werrors.ErrConflict }
