package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// HealthStatus is the derived health of a screen
type HealthStatus string

const (
	HealthOnline  HealthStatus = "online"
	HealthWarning HealthStatus = "warning"
	HealthError   HealthStatus = "error"
	HealthOffline HealthStatus = "offline"
)

// Screen represents a display device registered in the fleet
type Screen struct {
	// TypeMeta describes the versioning of this object
	TypeMeta `json:",inline"`
	// ObjectMeta provides metadata about the screen
	ObjectMeta `json:"metadata,omitempty"`

	// Spec holds the operator-controlled configuration
	Spec ScreenSpec `json:"spec"`
	// Status holds what the device reported and what the server derived
	Status ScreenStatus `json:"status"`
}

// ScreenSpec defines the desired state of a Screen
type ScreenSpec struct {
	RestaurantID string `json:"restaurantId,omitempty"`
	// HeartbeatInterval is the expected heartbeat period in seconds
	HeartbeatInterval int         `json:"heartbeatInterval,omitempty"`
	Wall              *WallConfig `json:"wall,omitempty"`
	Groups            []string    `json:"groups,omitempty"`
}

// WallConfig places a screen in a wall grid
type WallConfig struct {
	Enabled           bool     `json:"enabled"`
	WallName          string   `json:"wallName"`
	Position          Position `json:"position"`
	GridSize          GridSize `json:"gridSize"`
	BezelCompensation int      `json:"bezelCompensation,omitempty"`
	Rotation          int      `json:"rotation,omitempty"`
}

// Position is a zero-based wall cell
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// GridSize is a wall's dimensions
type GridSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// ScreenStatus defines the observed state of a Screen
type ScreenStatus struct {
	// Health is derived from the heartbeat age and unresolved issues
	Health         HealthStatus    `json:"health"`
	LastHeartbeat  *time.Time      `json:"lastHeartbeat,omitempty"`
	Issues         []Issue         `json:"issues,omitempty"`
	PendingCommand *PendingCommand `json:"pendingCommand,omitempty"`
}

// Issue is an error or warning reported by a device
type Issue struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	Message    string     `json:"message"`
	Severity   string     `json:"severity,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// PendingCommand is the command a device should execute next
type PendingCommand struct {
	Command   string    `json:"command"`
	CommandID uuid.UUID `json:"commandId"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// ScreenList is a list of screens
type ScreenList struct {
	// TypeMeta describes the versioning of this object
	TypeMeta `json:",inline"`

	// Items is the list of Screen objects
	Items []Screen `json:"items"`
}

// ScreenCreateRequest provisions a new screen
type ScreenCreateRequest struct {
	Name              string      `json:"name"`
	RestaurantID      string      `json:"restaurantId,omitempty"`
	HeartbeatInterval int         `json:"heartbeatInterval,omitempty"`
	Wall              *WallConfig `json:"wall,omitempty"`
	Groups            []string    `json:"groups,omitempty"`
}

// WallBindingRequest binds or unbinds a screen's wall position. A nil Wall
// unbinds.
type WallBindingRequest struct {
	Wall *WallConfig `json:"wall"`
}

// GroupsRequest replaces a screen's labels
type GroupsRequest struct {
	Groups []string `json:"groups"`
}

// IssueReport is sent by a device to record an error or warning
type IssueReport struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// HealthSummary aggregates screen health counts
type HealthSummary struct {
	TypeMeta        `json:",inline"`
	Total           int `json:"total"`
	Online          int `json:"online"`
	Warning         int `json:"warning"`
	Error           int `json:"error"`
	Offline         int `json:"offline"`
	PendingErrors   int `json:"pendingErrors"`
	PendingWarnings int `json:"pendingWarnings"`
}

// HeartbeatResponse tells a device its derived health and any command it
// should run next
type HeartbeatResponse struct {
	Health         HealthStatus    `json:"health"`
	PendingCommand *PendingCommand `json:"pendingCommand,omitempty"`
}
