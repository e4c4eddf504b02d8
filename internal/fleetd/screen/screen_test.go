package screen

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func TestNewScreen(t *testing.T) {
	s, err := NewScreen("r-1", "  lobby-1 ", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "lobby-1", s.Name)
	assert.Equal(t, DefaultHeartbeatInterval, s.HeartbeatInterval)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Nil(t, s.LastHeartbeat)

	_, err = NewScreen("r-1", " ", 60, nil)
	assert.True(t, werrors.IsInvalidInput(err))

	_, err = NewScreen("r-1", "x", -5, nil)
	assert.True(t, werrors.IsInvalidInput(err))
}

func TestValidateWall(t *testing.T) {
	valid := &WallConfig{Enabled: true, WallName: "main", Position: Position{1, 1}, GridSize: GridSize{2, 2}}

	tests := []struct {
		name    string
		wall    *WallConfig
		wantErr bool
	}{
		{"nil", nil, false},
		{"disabled ignores contents", &WallConfig{Enabled: false}, false},
		{"valid", valid, false},
		{"missing name", &WallConfig{Enabled: true, GridSize: GridSize{1, 1}}, true},
		{"zero grid", &WallConfig{Enabled: true, WallName: "w"}, true},
		{"outside grid", &WallConfig{Enabled: true, WallName: "w", Position: Position{2, 0}, GridSize: GridSize{2, 2}}, true},
		{"bad rotation", &WallConfig{Enabled: true, WallName: "w", GridSize: GridSize{1, 1}, Rotation: 45}, true},
		{"negative bezel", &WallConfig{Enabled: true, WallName: "w", GridSize: GridSize{1, 1}, BezelCompensation: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWall(tt.wall)
			if tt.wantErr {
				assert.True(t, werrors.IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIssueLifecycle(t *testing.T) {
	s, err := NewScreen("r-1", "lobby-1", 60, nil)
	require.NoError(t, err)

	e, err := s.ReportIssue(IssueError, "player crashed", "high", now)
	require.NoError(t, err)
	_, err = s.ReportIssue(IssueWarning, "disk 90%", "", now.Add(time.Second))
	require.NoError(t, err)

	assert.Len(t, s.Errors(), 1)
	assert.Len(t, s.Warnings(), 1)
	assert.Equal(t, 1, s.UnresolvedCount(IssueError))

	changed, err := s.ResolveIssue(e.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, s.UnresolvedCount(IssueError))

	changed, err = s.ResolveIssue(e.ID, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, changed, "resolving twice is a no-op")
	require.NotNil(t, s.Errors()[0].ResolvedAt)
	assert.Equal(t, now.Add(time.Minute), *s.Errors()[0].ResolvedAt)

	_, err = s.ResolveIssue(uuid.New(), now)
	assert.True(t, werrors.IsNotFound(err))

	assert.Equal(t, 1, s.ClearResolved(now))
	assert.Equal(t, 0, s.ClearResolved(now))
	assert.Len(t, s.Issues, 1)
	assert.Equal(t, IssueWarning, s.Issues[0].Kind)

	assert.Equal(t, 1, s.ResolveAll(IssueWarning, now))
	assert.Equal(t, 0, s.ResolveAll(IssueWarning, now))
}

func TestReportIssueValidation(t *testing.T) {
	s, err := NewScreen("r-1", "lobby-1", 60, nil)
	require.NoError(t, err)

	_, err = s.ReportIssue("info", "x", "", now)
	assert.True(t, werrors.IsInvalidInput(err))

	_, err = s.ReportIssue(IssueError, "  ", "", now)
	assert.True(t, werrors.IsInvalidInput(err))
	assert.Empty(t, s.Issues)
}

func TestPendingCommandReference(t *testing.T) {
	s, err := NewScreen("r-1", "lobby-1", 60, nil)
	require.NoError(t, err)

	first, second := uuid.New(), uuid.New()
	s.SetPendingCommand("reboot", first, now)
	s.SetPendingCommand("clear_cache", second, now.Add(time.Second))

	assert.False(t, s.ClearPendingCommand(first, now), "superseded entry must not clear newer command")
	require.NotNil(t, s.PendingCommand)
	assert.Equal(t, "clear_cache", s.PendingCommand.Command)

	assert.True(t, s.ClearPendingCommand(second, now))
	assert.Nil(t, s.PendingCommand)
}

func TestSetGroups(t *testing.T) {
	s, err := NewScreen("r-1", "lobby-1", 60, nil)
	require.NoError(t, err)

	s.SetGroups([]string{"menu", " ", "bar", "menu"}, now)
	assert.Equal(t, []string{"bar", "menu"}, s.Groups)
	assert.True(t, s.HasGroup("bar"))
	assert.False(t, s.HasGroup("kitchen"))
}

func TestInterval(t *testing.T) {
	s := &Screen{}
	assert.Equal(t, 60*time.Second, s.Interval())
	s.HeartbeatInterval = 15
	assert.Equal(t, 15*time.Second, s.Interval())
}
