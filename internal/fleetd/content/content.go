// Package content implements the content library: media items aimed at a
// wall or a single screen, and wall playlists
package content

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/internal/fleetd/schedule"
)

// TargetKind discriminates a Target
type TargetKind string

const (
	TargetWall   TargetKind = "wall"
	TargetScreen TargetKind = "screen"
)

// Target is where content plays. Exactly one of WallName or ScreenID is
// meaningful, selected by Kind.
type Target struct {
	Kind     TargetKind
	WallName string
	ScreenID uuid.UUID
}

// WallTarget aims content at every screen of a wall
func WallTarget(name string) Target {
	return Target{Kind: TargetWall, WallName: name}
}

// ScreenTarget aims content at one screen
func ScreenTarget(id uuid.UUID) Target {
	return Target{Kind: TargetScreen, ScreenID: id}
}

// Validate checks that the target's kind matches its payload
func (t Target) Validate() error {
	switch t.Kind {
	case TargetWall:
		if strings.TrimSpace(t.WallName) == "" {
			return ErrInvalidItem{Reason: "wall target requires a wall name"}
		}
		if t.ScreenID != uuid.Nil {
			return ErrInvalidItem{Reason: "wall target cannot name a screen"}
		}
	case TargetScreen:
		if t.ScreenID == uuid.Nil {
			return ErrInvalidItem{Reason: "screen target requires a screen ID"}
		}
		if t.WallName != "" {
			return ErrInvalidItem{Reason: "screen target cannot name a wall"}
		}
	default:
		return ErrInvalidItem{Reason: fmt.Sprintf("unknown target kind %q", t.Kind)}
	}
	return nil
}

func (t Target) String() string {
	if t.Kind == TargetWall {
		return "wall/" + t.WallName
	}
	return "screen/" + t.ScreenID.String()
}

// MediaType is the kind of media an item plays
type MediaType string

const (
	MediaImage  MediaType = "image"
	MediaVideo  MediaType = "video"
	MediaWidget MediaType = "widget"
)

// Valid reports whether m is a known media type
func (m MediaType) Valid() bool {
	return m == MediaImage || m == MediaVideo || m == MediaWidget
}

// Priority bounds
const (
	MinPriority = 1
	MaxPriority = 10
)

// Item is one piece of schedulable content
type Item struct {
	ID          uuid.UUID
	Target      Target
	Title       string
	Description string
	MediaURL    string
	MediaType   MediaType
	// Duration is the play time in seconds
	Duration int
	// Priority decides which simultaneously eligible item has the floor
	Priority int
	// DisplayOrder sequences items within a track
	DisplayOrder int
	// Layer selects the wall track; screen content always plays on layer 0
	Layer       int
	IsActive    bool
	Schedule    schedule.Spec
	SyncEnabled bool
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks an item before it is written
func (i *Item) Validate() error {
	if err := i.Target.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Title) == "" {
		return ErrInvalidItem{Reason: "title cannot be empty"}
	}
	if i.MediaURL == "" {
		return ErrInvalidItem{Reason: "media URL is required"}
	}
	if _, err := url.ParseRequestURI(i.MediaURL); err != nil {
		return ErrInvalidItem{Reason: "invalid media URL"}
	}
	if !i.MediaType.Valid() {
		return ErrInvalidItem{Reason: fmt.Sprintf("unknown media type %q", i.MediaType)}
	}
	if i.Duration <= 0 {
		return ErrInvalidItem{Reason: "duration must be positive"}
	}
	if i.Priority < MinPriority || i.Priority > MaxPriority {
		return ErrInvalidItem{Reason: fmt.Sprintf("priority %d out of range %d-%d", i.Priority, MinPriority, MaxPriority)}
	}
	if i.Layer < 0 {
		return ErrInvalidItem{Reason: "layer cannot be negative"}
	}
	if i.Target.Kind == TargetScreen && i.Layer != 0 {
		return ErrInvalidItem{Reason: "screen content has a single layer"}
	}
	return i.Schedule.Validate()
}

// Eligible reports whether the item may play at now
func (i *Item) Eligible(now time.Time) bool {
	return schedule.IsEligible(i.Schedule, i.IsActive, now)
}

// Playlist is an ordered selection of a wall's content
type Playlist struct {
	ID         uuid.UUID
	WallName   string
	Name       string
	ContentIDs []uuid.UUID
	Loop       bool
	Shuffle    bool
	IsActive   bool
	Schedule   schedule.Spec
	Priority   int
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks a playlist before it is written
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.WallName) == "" {
		return ErrInvalidPlaylist{Reason: "wall name is required"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidPlaylist{Reason: "name cannot be empty"}
	}
	if len(p.ContentIDs) == 0 {
		return ErrInvalidPlaylist{Reason: "playlist must reference at least one content item"}
	}
	if p.Priority < MinPriority || p.Priority > MaxPriority {
		return ErrInvalidPlaylist{Reason: fmt.Sprintf("priority %d out of range %d-%d", p.Priority, MinPriority, MaxPriority)}
	}
	return p.Schedule.Validate()
}

// Eligible reports whether the playlist itself may play at now
func (p *Playlist) Eligible(now time.Time) bool {
	return schedule.IsEligible(p.Schedule, p.IsActive, now)
}
