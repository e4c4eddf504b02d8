package command_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/memory"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

var _ command.Service = (*command.Dispatcher)(nil)

type recordingNotifier struct {
	mu      sync.Mutex
	entries []*command.Entry
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, e *command.Entry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, e)
	return n.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	screens   *memory.ScreenRepository
	log       *memory.CommandRepository
	notifier  *recordingNotifier
	publisher *recordingPublisher
	clock     *clock.Mock
	d         *command.Dispatcher
	screen    *screen.Screen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		screens:   memory.NewScreenRepository(),
		log:       memory.NewCommandRepository(),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		clock:     clock.NewMock(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)),
	}
	f.d = command.NewDispatcher(f.screens, f.log, f.publisher, f.clock, zerolog.Nop(),
		command.WithNotifier(f.notifier),
		command.WithSweepTimeout(10*time.Minute))

	sc, err := screen.NewScreen("r1", "menu-1", 0, nil)
	require.NoError(t, err)
	require.NoError(t, f.screens.Save(context.Background(), sc))
	f.screen = sc
	return f
}

func (f *fixture) pending(t *testing.T) *screen.PendingCommand {
	t.Helper()
	sc, err := f.screens.FindByID(context.Background(), f.screen.ID)
	require.NoError(t, err)
	return sc.PendingCommand
}

func TestIssueSetsPendingCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.d.Issue(ctx, command.IssueRequest{
		ScreenID: f.screen.ID,
		Command:  command.RefreshContent,
		IssuedBy: "ops@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, command.StatusPending, entry.Status)
	assert.Equal(t, "menu-1", entry.ScreenName)
	assert.Equal(t, "r1", entry.RestaurantID)
	assert.Nil(t, entry.ExecutedAt)

	pending := f.pending(t)
	require.NotNil(t, pending)
	assert.Equal(t, entry.ID, pending.LogEntryID)
	assert.Equal(t, command.RefreshContent, pending.Command)

	assert.Len(t, f.notifier.entries, 1)
	assert.Equal(t, []events.Type{events.CommandIssued}, f.publisher.types())
}

func TestIssueValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   command.IssueRequest
		check func(error) bool
	}{
		{
			name:  "empty command",
			req:   command.IssueRequest{ScreenID: f.screen.ID, Command: "  "},
			check: werrors.IsInvalidInput,
		},
		{
			name:  "missing screen id",
			req:   command.IssueRequest{Command: command.Reboot},
			check: werrors.IsInvalidInput,
		},
		{
			name:  "unknown screen",
			req:   command.IssueRequest{ScreenID: uuid.New(), Command: command.Reboot},
			check: werrors.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.d.Issue(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	entries, err := f.log.List(ctx, command.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIssueSucceedsWhenPushFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")

	entry, err := f.d.Issue(context.Background(), command.IssueRequest{ScreenID: f.screen.ID, Command: command.ClearCache})
	require.NoError(t, err)
	assert.Equal(t, command.StatusPending, entry.Status)
}

func TestEntriesNeverTransitionOnTheirOwn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.Reboot})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)

	got, err := f.d.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, command.StatusPending, got.Status)
	assert.NotNil(t, f.pending(t))
}

func TestNewIssueSupersedesPendingCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.RefreshContent})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.Reboot})
	require.NoError(t, err)

	assert.Equal(t, second.ID, f.pending(t).LogEntryID)

	// acking the superseded entry leaves the newer pending command alone
	_, err = f.d.Acknowledge(ctx, command.Ack{EntryID: first.ID, Success: true})
	require.NoError(t, err)
	require.NotNil(t, f.pending(t))
	assert.Equal(t, second.ID, f.pending(t).LogEntryID)

	_, err = f.d.Acknowledge(ctx, command.Ack{EntryID: second.ID, Success: true})
	require.NoError(t, err)
	assert.Nil(t, f.pending(t))
}

func TestAcknowledge(t *testing.T) {
	tests := []struct {
		name       string
		ack        func(id uuid.UUID) command.Ack
		wantStatus command.Status
		wantMsg    string
	}{
		{
			name:       "success",
			ack:        func(id uuid.UUID) command.Ack { return command.Ack{EntryID: id, Success: true} },
			wantStatus: command.StatusExecuted,
		},
		{
			name: "failure",
			ack: func(id uuid.UUID) command.Ack {
				return command.Ack{EntryID: id, Success: false, ErrorMessage: "player crashed"}
			},
			wantStatus: command.StatusFailed,
			wantMsg:    "player crashed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			entry, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.Reboot})
			require.NoError(t, err)
			f.clock.Advance(3 * time.Second)

			done, err := f.d.Acknowledge(ctx, tt.ack(entry.ID))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, done.Status)
			assert.Equal(t, tt.wantMsg, done.ErrorMessage)
			require.NotNil(t, done.ExecutedAt)
			assert.Equal(t, f.clock.Now(), *done.ExecutedAt)
			assert.Nil(t, f.pending(t))

			_, err = f.d.Acknowledge(ctx, command.Ack{EntryID: entry.ID, Success: true})
			assert.True(t, werrors.IsConflict(err))

			stored, err := f.d.Get(ctx, entry.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
		})
	}
}

func TestAcknowledgeRejectsForeignScreen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.Reboot})
	require.NoError(t, err)

	_, err = f.d.Acknowledge(ctx, command.Ack{EntryID: entry.ID, ScreenID: uuid.New(), Success: true})
	assert.True(t, werrors.IsNotFound(err))

	_, err = f.d.Acknowledge(ctx, command.Ack{EntryID: uuid.New(), Success: true})
	assert.True(t, werrors.IsNotFound(err))
}

func TestAcknowledgeAfterScreenDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.Reboot})
	require.NoError(t, err)
	require.NoError(t, f.screens.Delete(ctx, f.screen.ID))

	done, err := f.d.Acknowledge(ctx, command.Ack{EntryID: entry.ID, Success: true})
	require.NoError(t, err)
	assert.Equal(t, command.StatusExecuted, done.Status)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.RefreshContent})
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	acked, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.ClearCache})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.d.Acknowledge(ctx, command.Ack{EntryID: acked.ID, Success: true})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	fresh, err := f.d.Issue(ctx, command.IssueRequest{ScreenID: f.screen.ID, Command: command.Reboot})
	require.NoError(t, err)

	result, err := f.d.Sweep(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(-10*time.Minute), result.Cutoff)
	require.Len(t, result.TimedOut, 1)
	assert.Equal(t, old.ID, result.TimedOut[0].ID)

	got, err := f.d.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, command.StatusTimeout, got.Status)

	got, err = f.d.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, command.StatusPending, got.Status)
	assert.Equal(t, fresh.ID, f.pending(t).LogEntryID)

	f.clock.Advance(2 * time.Minute)
	result, err = f.d.Sweep(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, result.TimedOut, 1)
	assert.Equal(t, fresh.ID, result.TimedOut[0].ID)
	assert.Nil(t, f.pending(t))

	result, err = f.d.Sweep(ctx, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, result.TimedOut)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.d.List(context.Background(), command.Filter{Status: "lost"})
	assert.True(t, werrors.IsInvalidInput(err))
}
