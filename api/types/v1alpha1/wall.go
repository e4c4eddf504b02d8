package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// Wall is a named grid of screens
type Wall struct {
	TypeMeta `json:",inline"`
	Name     string     `json:"name"`
	GridSize GridSize   `json:"gridSize"`
	Cells    []WallCell `json:"cells"`
	// Complete is true when every grid position has a screen
	Complete bool          `json:"complete"`
	Missing  []Position    `json:"missing,omitempty"`
	Health   HealthSummary `json:"health"`
}

// WallCell is a bound grid position
type WallCell struct {
	Position   Position     `json:"position"`
	ScreenID   uuid.UUID    `json:"screenId"`
	ScreenName string       `json:"screenName"`
	Health     HealthStatus `json:"health"`
}

// WallList is a list of walls
type WallList struct {
	TypeMeta `json:",inline"`
	Items    []Wall `json:"items"`
}

// WallProvisionRequest creates rows x cols screens bound to a new wall
type WallProvisionRequest struct {
	Name              string   `json:"name"`
	Rows              int      `json:"rows"`
	Cols              int      `json:"cols"`
	RestaurantID      string   `json:"restaurantId,omitempty"`
	NamePrefix        string   `json:"namePrefix,omitempty"`
	HeartbeatInterval int      `json:"heartbeatInterval,omitempty"`
	BezelCompensation int      `json:"bezelCompensation,omitempty"`
	Groups            []string `json:"groups,omitempty"`
}

// Timeline is the resolved playback plan at an instant
type Timeline struct {
	TypeMeta `json:",inline"`
	// Target is "wall/<name>" or "screen/<id>"
	Target string    `json:"target"`
	At     time.Time `json:"at"`
	Tracks []Track   `json:"tracks"`
	// Floor is the highest-priority eligible item, if any
	Floor *uuid.UUID `json:"floor,omitempty"`
}

// Track is one looping sequence of entries
type Track struct {
	Layer    int             `json:"layer"`
	Loop     bool            `json:"loop"`
	Duration int             `json:"duration"`
	Entries  []TimelineEntry `json:"entries"`
}

// TimelineEntry is a content item placed at offsets within its track
type TimelineEntry struct {
	ContentID   uuid.UUID `json:"contentId"`
	Title       string    `json:"title"`
	MediaURL    string    `json:"mediaUrl"`
	MediaType   string    `json:"mediaType"`
	Priority    int       `json:"priority"`
	StartOffset int       `json:"startOffset"`
	EndOffset   int       `json:"endOffset"`
}

// NowPlaying reports what each track of a wall's shared cursor is showing
type NowPlaying struct {
	TypeMeta   `json:",inline"`
	WallName   string    `json:"wallName"`
	At         time.Time `json:"at"`
	Idle       bool      `json:"idle"`
	Finished   bool      `json:"finished,omitempty"`
	CycleStart time.Time `json:"cycleStart"`
	// Cycle counts completed loops since playback started
	Cycle int `json:"cycle"`
	// Offset is seconds into the current cycle
	Offset  int            `json:"offset"`
	Playing []PlayingEntry `json:"playing"`
}

// PlayingEntry is the entry on one track
type PlayingEntry struct {
	Layer int           `json:"layer"`
	Entry TimelineEntry `json:"entry"`
	// Offset is seconds into the entry
	Offset int `json:"offset"`
}
