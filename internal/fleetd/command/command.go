// Package command implements the remote command dispatcher and its audit log
package command

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a command log entry
type Status string

const (
	StatusPending  Status = "pending"
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
	StatusTimeout  Status = "timeout"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusExecuted, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// Terminal reports whether s can no longer change
func (s Status) Terminal() bool {
	return s == StatusExecuted || s == StatusFailed || s == StatusTimeout
}

// Commands offered to operators. Any other non-empty string is passed
// through to the device unchanged.
const (
	RefreshContent = "refresh_content"
	Reboot         = "reboot"
	ClearCache     = "clear_cache"
)

// Entry is the audit record of one issued command. Apart from a single
// terminal transition it is immutable.
type Entry struct {
	ID           uuid.UUID
	ScreenID     uuid.UUID
	RestaurantID string
	ScreenName   string
	Command      string
	Params       map[string]string
	IssuedBy     string
	Status       Status
	IssuedAt     time.Time
	ExecutedAt   *time.Time
	ErrorMessage string
}

// NewEntry creates a pending entry
func NewEntry(screenID uuid.UUID, restaurantID, screenName, cmd string, params map[string]string, issuedBy string, now time.Time) *Entry {
	return &Entry{
		ID:           uuid.New(),
		ScreenID:     screenID,
		RestaurantID: restaurantID,
		ScreenName:   screenName,
		Command:      strings.TrimSpace(cmd),
		Params:       params,
		IssuedBy:     issuedBy,
		Status:       StatusPending,
		IssuedAt:     now,
	}
}

// Complete applies a device acknowledgement
func (e *Entry) Complete(success bool, errorMessage string, now time.Time) error {
	if e.Status != StatusPending {
		return ErrAlreadyTerminal{ID: e.ID.String(), Status: e.Status}
	}
	if success {
		e.Status = StatusExecuted
	} else {
		e.Status = StatusFailed
		e.ErrorMessage = errorMessage
	}
	e.ExecutedAt = &now
	return nil
}

// TimeOut marks a pending entry stale
func (e *Entry) TimeOut(now time.Time) error {
	if e.Status != StatusPending {
		return ErrAlreadyTerminal{ID: e.ID.String(), Status: e.Status}
	}
	e.Status = StatusTimeout
	e.ErrorMessage = "no acknowledgement before sweep cutoff"
	return nil
}

// fail marks an entry failed when dispatch itself could not complete
func (e *Entry) fail(msg string, now time.Time) {
	e.Status = StatusFailed
	e.ErrorMessage = msg
	e.ExecutedAt = &now
}
