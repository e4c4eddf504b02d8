package screen

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for screen persistence
type Repository interface {
	// Save inserts or updates a screen. Updates compare-and-swap on Version
	// and bump it on success.
	Save(ctx context.Context, s *Screen) error

	// FindByID retrieves a screen by its unique identifier
	FindByID(ctx context.Context, id uuid.UUID) (*Screen, error)

	// FindByName retrieves a screen by its name
	FindByName(ctx context.Context, name string) (*Screen, error)

	// FindByWallPosition returns the screen bound to a wall cell
	FindByWallPosition(ctx context.Context, wallName string, pos Position) (*Screen, error)

	// List retrieves screens matching the given filter
	List(ctx context.Context, filter Filter) ([]*Screen, error)

	// ListWallNames returns the distinct names of walls with bound screens
	ListWallNames(ctx context.Context) ([]string, error)

	// Delete removes a screen from storage
	Delete(ctx context.Context, id uuid.UUID) error
}

// Filter defines criteria for listing screens
type Filter struct {
	RestaurantID string
	WallName     string
	Group        string
}

// CreateRequest describes an operator provisioning action
type CreateRequest struct {
	RestaurantID      string
	Name              string
	HeartbeatInterval int
	Wall              *WallConfig
	Groups            []string
}

// Service defines the screen registry operations
type Service interface {
	// Create provisions a new screen
	Create(ctx context.Context, req CreateRequest) (*Screen, error)

	// Get retrieves a screen by ID
	Get(ctx context.Context, id uuid.UUID) (*Screen, error)

	// GetByName retrieves a screen by name
	GetByName(ctx context.Context, name string) (*Screen, error)

	// List retrieves screens matching the filter
	List(ctx context.Context, filter Filter) ([]*Screen, error)

	// Delete removes a screen
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateWallConfig binds, moves or unbinds a screen's wall position
	UpdateWallConfig(ctx context.Context, id uuid.UUID, wall *WallConfig) (*Screen, error)

	// SetGroups replaces a screen's labels
	SetGroups(ctx context.Context, id uuid.UUID, groups []string) (*Screen, error)

	// RecordHeartbeat marks the screen alive at the current time
	RecordHeartbeat(ctx context.Context, id uuid.UUID) (*Screen, error)

	// ReportIssue appends an error or warning reported by the device
	ReportIssue(ctx context.Context, id uuid.UUID, kind IssueKind, message, severity string) (*Issue, error)

	// ResolveIssue marks an issue resolved; already resolved is a no-op
	ResolveIssue(ctx context.Context, id, issueID uuid.UUID) (*Screen, error)

	// ResolveAll resolves every unresolved issue of a kind
	ResolveAll(ctx context.Context, id uuid.UUID, kind IssueKind) (*Screen, error)

	// ClearResolved removes resolved issues from the screen
	ClearResolved(ctx context.Context, id uuid.UUID) (*Screen, error)
}
