package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// Command is a command log entry
type Command struct {
	TypeMeta     `json:",inline"`
	ID           uuid.UUID         `json:"id"`
	ScreenID     uuid.UUID         `json:"screenId"`
	ScreenName   string            `json:"screenName,omitempty"`
	RestaurantID string            `json:"restaurantId,omitempty"`
	Command      string            `json:"command"`
	Params       map[string]string `json:"params,omitempty"`
	IssuedBy     string            `json:"issuedBy,omitempty"`
	// Status is one of pending, executed, failed or timeout
	Status       string     `json:"status"`
	IssuedAt     time.Time  `json:"issuedAt"`
	ExecutedAt   *time.Time `json:"executedAt,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// CommandList is a list of command log entries, newest first
type CommandList struct {
	TypeMeta `json:",inline"`
	Items    []Command `json:"items"`
}

// CommandIssueRequest asks the server to send a command to a screen
type CommandIssueRequest struct {
	ScreenID uuid.UUID         `json:"screenId"`
	Command  string            `json:"command"`
	Params   map[string]string `json:"params,omitempty"`
	IssuedBy string            `json:"issuedBy,omitempty"`
}

// CommandAck is a device's report that a command finished
type CommandAck struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SweepRequest asks for stale pending commands to be timed out. A zero
// timeout uses the server default.
type SweepRequest struct {
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
}

// SweepResponse lists the entries a sweep timed out
type SweepResponse struct {
	TypeMeta `json:",inline"`
	Cutoff   time.Time `json:"cutoff"`
	TimedOut []Command `json:"timedOut"`
}
