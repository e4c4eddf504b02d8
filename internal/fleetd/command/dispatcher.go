package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/metrics"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// DefaultSweepTimeout applies when neither the caller nor configuration
// picks one
const DefaultSweepTimeout = 5 * time.Minute

// maxScreenSaveAttempts bounds compare-and-swap retries on the screen record
const maxScreenSaveAttempts = 3

// Dispatcher issues commands to screens and tracks their log entries.
// It never waits on device I/O.
type Dispatcher struct {
	screens      screen.Repository
	log          Repository
	notifier     Notifier
	publisher    events.Publisher
	clock        clock.Clock
	logger       zerolog.Logger
	sweepTimeout time.Duration
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithNotifier sets the device push channel
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithSweepTimeout sets the default sweep cutoff age
func WithSweepTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sweepTimeout = timeout
		}
	}
}

// NewDispatcher creates a command dispatcher
func NewDispatcher(screens screen.Repository, log Repository, publisher events.Publisher, clk clock.Clock, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		screens:      screens,
		log:          log,
		notifier:     Notifiers(nil),
		publisher:    publisher,
		clock:        clk,
		logger:       logger.With().Str("component", "command-dispatcher").Logger(),
		sweepTimeout: DefaultSweepTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Issue sends a command to a screen. The screen's visible pending command
// is replaced; earlier unacknowledged entries stay pending in the log.
func (d *Dispatcher) Issue(ctx context.Context, req IssueRequest) (*Entry, error) {
	const op = "CommandDispatcher.Issue"

	cmd := strings.TrimSpace(req.Command)
	if cmd == "" {
		return nil, werrors.Validation(op, "command cannot be empty")
	}
	if req.ScreenID == uuid.Nil {
		return nil, werrors.Validation(op, "screen ID is required")
	}

	sc, err := d.screens.FindByID(ctx, req.ScreenID)
	if err != nil {
		return nil, screenLookupError(op, req.ScreenID, err)
	}

	now := d.clock.Now()
	entry := NewEntry(sc.ID, sc.RestaurantID, sc.Name, cmd, req.Params, req.IssuedBy, now)
	if err := d.log.Create(ctx, entry); err != nil {
		return nil, werrors.NewError("SAVE_FAILED", "Failed to record command", op, err)
	}

	if err := d.setPending(ctx, sc, entry, now); err != nil {
		// The log keeps an honest record of the failed dispatch
		entry.fail(fmt.Sprintf("dispatch failed: %v", err), now)
		if cerr := d.log.Complete(ctx, entry); cerr != nil {
			d.logger.Error().Err(cerr).
				Str("commandId", entry.ID.String()).
				Str("operation", op).
				Msg("failed to record dispatch failure")
		}
		metrics.CommandsTotal.WithLabelValues(string(StatusFailed)).Inc()
		return nil, err
	}

	metrics.CommandsTotal.WithLabelValues(string(StatusPending)).Inc()
	d.logger.Info().
		Str("commandId", entry.ID.String()).
		Str("screenId", sc.ID.String()).
		Str("command", cmd).
		Str("issuedBy", req.IssuedBy).
		Str("operation", op).
		Msg("command issued")

	if err := d.notifier.Notify(ctx, entry); err != nil {
		d.logger.Warn().Err(err).
			Str("commandId", entry.ID.String()).
			Str("screenId", sc.ID.String()).
			Msg("command push failed, device will pick it up on poll")
	}

	d.publish(ctx, events.Event{
		Type:      events.CommandIssued,
		ScreenID:  sc.ID,
		Timestamp: now,
		Data: map[string]string{
			"commandId": entry.ID.String(),
			"command":   cmd,
		},
	})

	return entry, nil
}

// setPending writes the pending command reference, retrying when another
// writer updated the screen first
func (d *Dispatcher) setPending(ctx context.Context, sc *screen.Screen, entry *Entry, now time.Time) error {
	const op = "CommandDispatcher.setPending"

	for attempt := 1; ; attempt++ {
		sc.SetPendingCommand(entry.Command, entry.ID, now)
		err := d.screens.Save(ctx, sc)
		if err == nil {
			return nil
		}
		if !werrors.IsVersionMismatch(err) || attempt >= maxScreenSaveAttempts {
			return werrors.NewError("SAVE_FAILED", "Failed to set pending command", op, err)
		}
		if sc, err = d.screens.FindByID(ctx, entry.ScreenID); err != nil {
			return screenLookupError(op, entry.ScreenID, err)
		}
	}
}

// Acknowledge applies a device's terminal report to its log entry and
// clears the screen's pending command if it still points at that entry
func (d *Dispatcher) Acknowledge(ctx context.Context, ack Ack) (*Entry, error) {
	const op = "CommandDispatcher.Acknowledge"

	entry, err := d.log.FindByID(ctx, ack.EntryID)
	if err != nil {
		return nil, entryLookupError(op, ack.EntryID, err)
	}
	if ack.ScreenID != uuid.Nil && ack.ScreenID != entry.ScreenID {
		nf := ErrNotFound{ID: ack.EntryID.String()}
		return nil, werrors.NewError(werrors.CodeNotFound, "Command not found for screen", op, nf)
	}

	now := d.clock.Now()
	if err := entry.Complete(ack.Success, ack.ErrorMessage, now); err != nil {
		return nil, werrors.NewError(werrors.CodeConflict, err.Error(), op, err)
	}
	if err := d.log.Complete(ctx, entry); err != nil {
		if werrors.IsConflict(err) {
			return nil, werrors.NewError(werrors.CodeConflict, err.Error(), op, err)
		}
		return nil, werrors.NewError("SAVE_FAILED", "Failed to record acknowledgement", op, err)
	}

	metrics.CommandsTotal.WithLabelValues(string(entry.Status)).Inc()
	d.clearPending(ctx, entry, now)

	d.logger.Info().
		Str("commandId", entry.ID.String()).
		Str("screenId", entry.ScreenID.String()).
		Str("status", string(entry.Status)).
		Str("operation", op).
		Msg("command acknowledged")

	d.publish(ctx, events.Event{
		Type:      events.CommandCompleted,
		ScreenID:  entry.ScreenID,
		Timestamp: now,
		Data: map[string]string{
			"commandId": entry.ID.String(),
			"status":    string(entry.Status),
		},
	})

	return entry, nil
}

// Sweep marks pending entries older than timeout as timed out. It runs only
// when an operator asks for it.
func (d *Dispatcher) Sweep(ctx context.Context, timeout time.Duration) (*SweepResult, error) {
	const op = "CommandDispatcher.Sweep"

	if timeout <= 0 {
		timeout = d.sweepTimeout
	}
	now := d.clock.Now()
	cutoff := now.Add(-timeout)

	stale, err := d.log.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return nil, werrors.NewError("LIST_FAILED", "Failed to list pending commands", op, err)
	}

	result := &SweepResult{Cutoff: cutoff}
	for _, entry := range stale {
		if err := entry.TimeOut(now); err != nil {
			continue
		}
		if err := d.log.Complete(ctx, entry); err != nil {
			if werrors.IsConflict(err) {
				// acknowledged between list and update
				continue
			}
			return result, werrors.NewError("SAVE_FAILED", "Failed to record timeout", op, err)
		}

		metrics.CommandsTotal.WithLabelValues(string(StatusTimeout)).Inc()
		d.clearPending(ctx, entry, now)
		result.TimedOut = append(result.TimedOut, entry)

		d.publish(ctx, events.Event{
			Type:      events.CommandTimedOut,
			ScreenID:  entry.ScreenID,
			Timestamp: now,
			Data:      map[string]string{"commandId": entry.ID.String()},
		})
	}

	d.logger.Info().
		Time("cutoff", cutoff).
		Int("timedOut", len(result.TimedOut)).
		Str("operation", op).
		Msg("command sweep finished")

	return result, nil
}

// Get retrieves a command log entry
func (d *Dispatcher) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	const op = "CommandDispatcher.Get"

	entry, err := d.log.FindByID(ctx, id)
	if err != nil {
		return nil, entryLookupError(op, id, err)
	}
	return entry, nil
}

// List returns command log entries newest first
func (d *Dispatcher) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	const op = "CommandDispatcher.List"

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, werrors.Validation(op, fmt.Sprintf("unknown status %q", filter.Status))
	}
	entries, err := d.log.List(ctx, filter)
	if err != nil {
		return nil, werrors.NewError("LIST_FAILED", "Failed to list commands", op, err)
	}
	return entries, nil
}

// clearPending drops the screen's pending command when it references entry.
// A deleted screen or a lost race leaves the screen as is.
func (d *Dispatcher) clearPending(ctx context.Context, entry *Entry, now time.Time) {
	for attempt := 1; attempt <= maxScreenSaveAttempts; attempt++ {
		sc, err := d.screens.FindByID(ctx, entry.ScreenID)
		if err != nil {
			if !werrors.IsNotFound(err) {
				d.logger.Error().Err(err).Str("screenId", entry.ScreenID.String()).Msg("failed to load screen")
			}
			return
		}
		if !sc.ClearPendingCommand(entry.ID, now) {
			return
		}
		err = d.screens.Save(ctx, sc)
		if err == nil {
			return
		}
		if !werrors.IsVersionMismatch(err) {
			d.logger.Error().Err(err).Str("screenId", entry.ScreenID.String()).Msg("failed to clear pending command")
			return
		}
	}
	d.logger.Warn().
		Str("screenId", entry.ScreenID.String()).
		Str("commandId", entry.ID.String()).
		Msg("gave up clearing pending command after version conflicts")
}

func (d *Dispatcher) publish(ctx context.Context, event events.Event) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to publish event")
	}
}

func screenLookupError(op string, id uuid.UUID, err error) error {
	if werrors.IsNotFound(err) {
		return werrors.NewError(werrors.CodeNotFound, fmt.Sprintf("Screen not found: %s", id), op, err)
	}
	return werrors.NewError("LOOKUP_FAILED", "Failed to retrieve screen", op, err)
}

func entryLookupError(op string, id uuid.UUID, err error) error {
	if werrors.IsNotFound(err) {
		return werrors.NewError(werrors.CodeNotFound, fmt.Sprintf("Command not found: %s", id), op, err)
	}
	return werrors.NewError("LOOKUP_FAILED", "Failed to retrieve command", op, err)
}
