package screen

import (
	"fmt"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// ErrVersionMismatch indicates a concurrent modification conflict
type ErrVersionMismatch struct {
	ID string
}

func (e ErrVersionMismatch) Error() string {
	return fmt.Sprintf("version mismatch for screen %s: concurrent modification detected", e.ID)
}

func (e ErrVersionMismatch) Unwrap() error { return werrors.ErrVersionMismatch }

// ErrNotFound indicates a screen lookup failure
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("screen not found: %s", e.ID)
}

func (e ErrNotFound) Unwrap() error { return werrors.ErrNotFound }

// ErrIssueNotFound indicates an unknown issue ID on an existing screen
type ErrIssueNotFound struct {
	ScreenID string
	IssueID  string
}

func (e ErrIssueNotFound) Error() string {
	return fmt.Sprintf("issue %s not found on screen %s", e.IssueID, e.ScreenID)
}

func (e ErrIssueNotFound) Unwrap() error { return werrors.ErrNotFound }

// ErrPositionTaken indicates another screen already occupies a wall cell
type ErrPositionTaken struct {
	WallName string
	Position Position
	HolderID string
}

func (e ErrPositionTaken) Error() string {
	return fmt.Sprintf("wall %q position (%d,%d) already taken by screen %s",
		e.WallName, e.Position.Row, e.Position.Col, e.HolderID)
}

func (e ErrPositionTaken) Unwrap() error { return werrors.ErrConflict }

// ErrInvalidName indicates an invalid screen name
type ErrInvalidName struct {
	Name   string
	Reason string
}

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("invalid screen name %q: %s", e.Name, e.Reason)
}

func (e ErrInvalidName) Unwrap() error { return werrors.ErrInvalidInput }

// ErrInvalidInterval indicates a non-positive heartbeat interval
type ErrInvalidInterval struct {
	Interval int
}

func (e ErrInvalidInterval) Error() string {
	return fmt.Sprintf("invalid heartbeat interval %d: must be positive", e.Interval)
}

func (e ErrInvalidInterval) Unwrap() error { return werrors.ErrInvalidInput }

// ErrInvalidWall indicates an inconsistent wall binding
type ErrInvalidWall struct {
	Reason string
}

func (e ErrInvalidWall) Error() string {
	return fmt.Sprintf("invalid wall config: %s", e.Reason)
}

func (e ErrInvalidWall) Unwrap() error { return werrors.ErrInvalidInput }

// ErrInvalidIssue indicates a malformed issue report
type ErrInvalidIssue struct {
	Reason string
}

func (e ErrInvalidIssue) Error() string {
	return fmt.Sprintf("invalid issue: %s", e.Reason)
}

func (e ErrInvalidIssue) Unwrap() error { return werrors.ErrInvalidInput }

// ErrNameTaken indicates another screen already uses the name
type ErrNameTaken struct {
	Name string
}

func (e ErrNameTaken) Error() string {
	return fmt.Sprintf("screen name %q already in use", e.Name)
}

func (e ErrNameTaken) Unwrap() error { return werrors.ErrConflict }
