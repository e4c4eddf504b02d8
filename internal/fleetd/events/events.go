// Package events carries fleet change notifications to interested parties.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Type names an event
type Type string

const (
	ScreenCreated       Type = "screen.created"
	ScreenDeleted       Type = "screen.deleted"
	ScreenHeartbeat     Type = "screen.heartbeat"
	ScreenWallChanged   Type = "screen.wall_changed"
	ScreenIssueReported Type = "screen.issue_reported"
	ScreenIssueResolved Type = "screen.issue_resolved"
	ScreenStatusChanged Type = "screen.status_changed"
	CommandIssued       Type = "command.issued"
	CommandCompleted    Type = "command.completed"
	CommandTimedOut     Type = "command.timed_out"
	ContentChanged      Type = "content.changed"
)

// Event represents something that happened in the fleet
type Event struct {
	Type      Type              `json:"type"`
	ScreenID  uuid.UUID         `json:"screenId,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// Publisher sends events to subscribers. Callers treat failures as
// non-fatal and log them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to a logger
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that logs every event at debug level
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

// Publish logs the event
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	ev := p.logger.Debug().
		Str("type", string(event.Type)).
		Time("timestamp", event.Timestamp)
	if event.ScreenID != uuid.Nil {
		ev = ev.Str("screenId", event.ScreenID.String())
	}
	for k, v := range event.Data {
		ev = ev.Str(k, v)
	}
	ev.Msg("fleet event")
	return nil
}

// Fanout publishes to every publisher in order
type Fanout []Publisher

// Publish delivers to all publishers and joins their errors
func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }
