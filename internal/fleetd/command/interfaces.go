package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for command log persistence
type Repository interface {
	// Create appends a new entry
	Create(ctx context.Context, e *Entry) error

	// FindByID retrieves an entry
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Complete persists a terminal transition. It fails with
	// ErrAlreadyTerminal when the stored entry is no longer pending.
	Complete(ctx context.Context, e *Entry) error

	// List returns entries newest first
	List(ctx context.Context, filter Filter) ([]*Entry, error)

	// ListPendingBefore returns pending entries issued before cutoff
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*Entry, error)
}

// Filter defines criteria for listing command log entries
type Filter struct {
	ScreenID uuid.UUID
	Status   Status
	Limit    int
}

// IssueRequest is an operator's request to send a command to a screen
type IssueRequest struct {
	ScreenID uuid.UUID
	Command  string
	Params   map[string]string
	IssuedBy string
}

// Ack is a device acknowledgement. ScreenID, when set, must match the
// entry's screen.
type Ack struct {
	EntryID      uuid.UUID
	ScreenID     uuid.UUID
	Success      bool
	ErrorMessage string
}

// SweepResult reports the outcome of a timeout sweep
type SweepResult struct {
	Cutoff   time.Time
	TimedOut []*Entry
}

// Service defines the command dispatcher operations
type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*Entry, error)
	Acknowledge(ctx context.Context, ack Ack) (*Entry, error)
	Sweep(ctx context.Context, timeout time.Duration) (*SweepResult, error)
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]*Entry, error)
}

// Notifier pushes a freshly issued command toward its device. Delivery is
// best-effort; the device may also poll its pending command.
type Notifier interface {
	Notify(ctx context.Context, e *Entry) error
}

// Notifiers fans a notification out to several channels
type Notifiers []Notifier

// Notify calls every notifier and joins their errors
func (n Notifiers) Notify(ctx context.Context, e *Entry) error {
	var errs []error
	for _, nt := range n {
		if err := nt.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
