// Package screen implements the screen registry domain model
package screen

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultHeartbeatInterval is used when a screen has no interval configured
const DefaultHeartbeatInterval = 60

// IssueKind separates errors from warnings in a screen's issue arena
type IssueKind string

const (
	// IssueError is an error reported by the device
	IssueError IssueKind = "error"
	// IssueWarning is a warning reported by the device
	IssueWarning IssueKind = "warning"
)

// Valid reports whether k is a known issue kind
func (k IssueKind) Valid() bool {
	return k == IssueError || k == IssueWarning
}

// Screen represents a physical display device registered in the fleet
type Screen struct {
	// ID is the unique identifier for this screen
	ID uuid.UUID
	// RestaurantID scopes the screen to its owning restaurant
	RestaurantID string
	// Name is a human-readable identifier
	Name string
	// Wall holds the screen's media wall membership, nil when standalone
	Wall *WallConfig
	// LastHeartbeat is when the device last proved liveness
	LastHeartbeat *time.Time
	// HeartbeatInterval is the expected heartbeat period in seconds
	HeartbeatInterval int
	// Issues is the error/warning arena ordered by report time
	Issues []Issue
	// PendingCommand is the most recently issued, unacknowledged command
	PendingCommand *PendingCommand
	// Groups are free-form operator labels
	Groups []string
	// Version tracks optimistic concurrency control
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WallConfig places a screen inside a named wall grid
type WallConfig struct {
	Enabled  bool
	WallName string
	Position Position
	GridSize GridSize
	// BezelCompensation is the pixel overlap applied at screen edges
	BezelCompensation int
	// Rotation is the physical rotation in degrees
	Rotation int
}

// Position is a zero-based cell in a wall grid
type Position struct {
	Row int
	Col int
}

// GridSize is the dimension of a wall grid
type GridSize struct {
	Rows int
	Cols int
}

// Cells returns rows*cols
func (g GridSize) Cells() int {
	return g.Rows * g.Cols
}

// Contains reports whether p lies inside the grid
func (g GridSize) Contains(p Position) bool {
	return p.Row >= 0 && p.Col >= 0 && p.Row < g.Rows && p.Col < g.Cols
}

// Issue is a single error or warning record keyed by ID
type Issue struct {
	ID         uuid.UUID
	Kind       IssueKind
	Message    string
	Severity   string
	Timestamp  time.Time
	Resolved   bool
	ResolvedAt *time.Time
}

// PendingCommand is the single visible pending command on a screen. It
// references the command log entry that created it.
type PendingCommand struct {
	Command    string
	LogEntryID uuid.UUID
	IssuedAt   time.Time
}

// NewScreen creates an unsaved screen with a fresh ID
func NewScreen(restaurantID, name string, interval int, wall *WallConfig) (*Screen, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName{Name: name, Reason: "name cannot be empty"}
	}
	if interval == 0 {
		interval = DefaultHeartbeatInterval
	}
	if interval < 0 {
		return nil, ErrInvalidInterval{Interval: interval}
	}
	if err := ValidateWall(wall); err != nil {
		return nil, err
	}

	return &Screen{
		ID:                uuid.New(),
		RestaurantID:      restaurantID,
		Name:              name,
		Wall:              wall,
		HeartbeatInterval: interval,
	}, nil
}

// ValidateWall checks a wall binding for internal consistency. A nil or
// disabled binding is always valid.
func ValidateWall(w *WallConfig) error {
	if w == nil || !w.Enabled {
		return nil
	}
	if strings.TrimSpace(w.WallName) == "" {
		return ErrInvalidWall{Reason: "wall name cannot be empty"}
	}
	if w.GridSize.Rows < 1 || w.GridSize.Cols < 1 {
		return ErrInvalidWall{Reason: "grid size must be at least 1x1"}
	}
	if !w.GridSize.Contains(w.Position) {
		return ErrInvalidWall{Reason: "position lies outside the grid"}
	}
	switch w.Rotation {
	case 0, 90, 180, 270:
	default:
		return ErrInvalidWall{Reason: "rotation must be 0, 90, 180 or 270"}
	}
	if w.BezelCompensation < 0 {
		return ErrInvalidWall{Reason: "bezel compensation cannot be negative"}
	}
	return nil
}

// InWall reports whether the screen is bound to a wall
func (s *Screen) InWall() bool {
	return s.Wall != nil && s.Wall.Enabled
}

// Interval returns the heartbeat interval, falling back to the default
func (s *Screen) Interval() time.Duration {
	if s.HeartbeatInterval <= 0 {
		return DefaultHeartbeatInterval * time.Second
	}
	return time.Duration(s.HeartbeatInterval) * time.Second
}

// Heartbeat records a liveness signal at now
func (s *Screen) Heartbeat(now time.Time) {
	s.LastHeartbeat = &now
	s.UpdatedAt = now
}

// ReportIssue appends a new unresolved issue and returns it
func (s *Screen) ReportIssue(kind IssueKind, message, severity string, now time.Time) (Issue, error) {
	if !kind.Valid() {
		return Issue{}, ErrInvalidIssue{Reason: "kind must be error or warning"}
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Issue{}, ErrInvalidIssue{Reason: "message cannot be empty"}
	}

	issue := Issue{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		Severity:  severity,
		Timestamp: now,
	}
	s.Issues = append(s.Issues, issue)
	s.UpdatedAt = now
	return issue, nil
}

// ResolveIssue marks an issue resolved. It reports whether anything
// changed; resolving an already resolved issue is a no-op.
func (s *Screen) ResolveIssue(id uuid.UUID, now time.Time) (bool, error) {
	for i := range s.Issues {
		if s.Issues[i].ID != id {
			continue
		}
		if s.Issues[i].Resolved {
			return false, nil
		}
		s.Issues[i].Resolved = true
		s.Issues[i].ResolvedAt = &now
		s.UpdatedAt = now
		return true, nil
	}
	return false, ErrIssueNotFound{ScreenID: s.ID.String(), IssueID: id.String()}
}

// ResolveAll resolves every unresolved issue of kind and returns the count
func (s *Screen) ResolveAll(kind IssueKind, now time.Time) int {
	n := 0
	for i := range s.Issues {
		if s.Issues[i].Kind == kind && !s.Issues[i].Resolved {
			s.Issues[i].Resolved = true
			s.Issues[i].ResolvedAt = &now
			n++
		}
	}
	if n > 0 {
		s.UpdatedAt = now
	}
	return n
}

// ClearResolved drops resolved issues and returns how many were removed
func (s *Screen) ClearResolved(now time.Time) int {
	kept := s.Issues[:0]
	removed := 0
	for _, is := range s.Issues {
		if is.Resolved {
			removed++
			continue
		}
		kept = append(kept, is)
	}
	s.Issues = kept
	if removed > 0 {
		s.UpdatedAt = now
	}
	return removed
}

// Errors returns the error issues in report order
func (s *Screen) Errors() []Issue {
	return s.issuesOf(IssueError)
}

// Warnings returns the warning issues in report order
func (s *Screen) Warnings() []Issue {
	return s.issuesOf(IssueWarning)
}

// UnresolvedCount counts unresolved issues of kind
func (s *Screen) UnresolvedCount(kind IssueKind) int {
	n := 0
	for _, is := range s.Issues {
		if is.Kind == kind && !is.Resolved {
			n++
		}
	}
	return n
}

func (s *Screen) issuesOf(kind IssueKind) []Issue {
	var out []Issue
	for _, is := range s.Issues {
		if is.Kind == kind {
			out = append(out, is)
		}
	}
	return out
}

// SetPendingCommand replaces the visible pending command
func (s *Screen) SetPendingCommand(command string, entryID uuid.UUID, now time.Time) {
	s.PendingCommand = &PendingCommand{
		Command:    command,
		LogEntryID: entryID,
		IssuedAt:   now,
	}
	s.UpdatedAt = now
}

// ClearPendingCommand clears the pending command when it still references
// entryID, and reports whether it did.
func (s *Screen) ClearPendingCommand(entryID uuid.UUID, now time.Time) bool {
	if s.PendingCommand == nil || s.PendingCommand.LogEntryID != entryID {
		return false
	}
	s.PendingCommand = nil
	s.UpdatedAt = now
	return true
}

// SetGroups replaces the label set, dropping blanks and duplicates
func (s *Screen) SetGroups(groups []string, now time.Time) {
	seen := make(map[string]bool, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	s.Groups = out
	s.UpdatedAt = now
}

// HasGroup reports whether the screen carries label g
func (s *Screen) HasGroup(g string) bool {
	for _, have := range s.Groups {
		if have == g {
			return true
		}
	}
	return false
}

// BindWall replaces the wall membership
func (s *Screen) BindWall(w *WallConfig, now time.Time) error {
	if err := ValidateWall(w); err != nil {
		return err
	}
	s.Wall = w
	s.UpdatedAt = now
	return nil
}
