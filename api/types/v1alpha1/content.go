package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// ContentTarget names where an item plays: a whole wall or one screen
type ContentTarget struct {
	// Kind is "wall" or "screen"
	Kind     string    `json:"kind"`
	WallName string    `json:"wallName,omitempty"`
	ScreenID uuid.UUID `json:"screenId,omitempty"`
}

// Schedule restricts when content or a playlist may play
type Schedule struct {
	Enabled   bool       `json:"enabled"`
	StartDate *time.Time `json:"startDate,omitempty"`
	// EndDate is the last instant content may play
	EndDate   *time.Time         `json:"endDate,omitempty"`
	Recurring *RecurringSchedule `json:"recurring,omitempty"`
}

// RecurringSchedule is a weekly day and time-of-day rule
type RecurringSchedule struct {
	Enabled bool `json:"enabled"`
	// DaysOfWeek uses 0 for Sunday
	DaysOfWeek []int       `json:"daysOfWeek"`
	TimeRanges []TimeRange `json:"timeRanges"`
}

// TimeRange represents a time period within a day
type TimeRange struct {
	// Start is when the range begins (e.g., "09:00")
	Start string `json:"startTime"`
	// End is when the range ends (e.g., "17:00")
	End string `json:"endTime"`
}

// ContentItem is a media item with its scheduling attributes
type ContentItem struct {
	TypeMeta     `json:",inline"`
	ObjectMeta   `json:"metadata,omitempty"`
	Target       ContentTarget `json:"target"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	MediaURL     string        `json:"mediaUrl"`
	MediaType    string        `json:"mediaType"`
	Duration     int           `json:"duration"`
	Priority     int           `json:"priority"`
	DisplayOrder int           `json:"displayOrder"`
	// Layer is the wall track the item plays on
	Layer       int       `json:"layer,omitempty"`
	IsActive    bool      `json:"isActive"`
	Schedule    *Schedule `json:"schedule,omitempty"`
	SyncEnabled bool      `json:"syncEnabled,omitempty"`
}

// ContentItemList is a list of content items
type ContentItemList struct {
	TypeMeta `json:",inline"`
	Items    []ContentItem `json:"items"`
}

// Playlist is an ordered selection of content for a wall
type Playlist struct {
	TypeMeta   `json:",inline"`
	ObjectMeta `json:"metadata,omitempty"`
	WallName   string      `json:"wallName"`
	ContentIDs []uuid.UUID `json:"contentIds"`
	Loop       bool        `json:"loop"`
	Shuffle    bool        `json:"shuffle"`
	IsActive   bool        `json:"isActive"`
	Schedule   *Schedule   `json:"schedule,omitempty"`
	Priority   int         `json:"priority"`
}

// PlaylistList is a list of playlists
type PlaylistList struct {
	TypeMeta `json:",inline"`
	Items    []Playlist `json:"items"`
}

// ScheduleCheck reports whether a schedule admits an instant
type ScheduleCheck struct {
	At       time.Time `json:"at"`
	Eligible bool      `json:"eligible"`
	// Warnings lists accepted but never-matching time ranges
	Warnings []string `json:"warnings,omitempty"`
}

// ScheduleCheckRequest asks whether a schedule admits an instant. A zero
// At uses the server clock.
type ScheduleCheckRequest struct {
	Schedule Schedule  `json:"schedule"`
	IsActive bool      `json:"isActive"`
	At       time.Time `json:"at,omitempty"`
}
