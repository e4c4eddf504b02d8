package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

var (
	_ screen.Repository  = (*ScreenRepository)(nil)
	_ command.Repository = (*CommandRepository)(nil)
)

func TestScreenRepositoryCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewScreenRepository()

	sc, err := screen.NewScreen("r1", "menu-1", 0, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sc))
	assert.Equal(t, 1, sc.Version)

	a, err := repo.FindByID(ctx, sc.ID)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, sc.ID)
	require.NoError(t, err)

	a.Heartbeat(time.Now())
	require.NoError(t, repo.Save(ctx, a))
	assert.Equal(t, 2, a.Version)

	b.SetGroups([]string{"lobby"}, time.Now())
	err = repo.Save(ctx, b)
	assert.True(t, werrors.IsVersionMismatch(err))
}

func TestScreenRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewScreenRepository()

	sc, err := screen.NewScreen("r1", "menu-1", 0, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sc))

	got, err := repo.FindByID(ctx, sc.ID)
	require.NoError(t, err)
	_, err = got.ReportIssue(screen.IssueError, "disk full", "high", time.Now())
	require.NoError(t, err)

	again, err := repo.FindByID(ctx, sc.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Issues)
}

func TestScreenRepositoryUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewScreenRepository()
	wall := func() *screen.WallConfig {
		return &screen.WallConfig{
			Enabled:  true,
			WallName: "main",
			Position: screen.Position{Row: 0, Col: 0},
			GridSize: screen.GridSize{Rows: 2, Cols: 2},
		}
	}

	first, err := screen.NewScreen("r1", "a", 0, wall())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	dupName, err := screen.NewScreen("r1", "a", 0, nil)
	require.NoError(t, err)
	assert.True(t, werrors.IsConflict(repo.Save(ctx, dupName)))

	dupCell, err := screen.NewScreen("r1", "b", 0, wall())
	require.NoError(t, err)
	assert.True(t, werrors.IsConflict(repo.Save(ctx, dupCell)))

	holder, err := repo.FindByWallPosition(ctx, "main", screen.Position{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, holder.ID)

	names, err := repo.ListWallNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, names)
}

func TestScreenRepositoryListFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewScreenRepository()

	for _, tc := range []struct {
		restaurant, name string
		groups           []string
	}{
		{"r1", "b", []string{"lobby"}},
		{"r1", "a", nil},
		{"r2", "c", []string{"lobby"}},
	} {
		sc, err := screen.NewScreen(tc.restaurant, tc.name, 0, nil)
		require.NoError(t, err)
		sc.SetGroups(tc.groups, time.Now())
		require.NoError(t, repo.Save(ctx, sc))
	}

	all, err := repo.List(ctx, screen.Filter{RestaurantID: "r1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)

	lobby, err := repo.List(ctx, screen.Filter{Group: "lobby"})
	require.NoError(t, err)
	assert.Len(t, lobby, 2)
}

func TestCommandRepositoryCompleteOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewCommandRepository()
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	e := command.NewEntry(uuid.New(), "r1", "menu-1", command.Reboot, nil, "ops", now)
	require.NoError(t, repo.Create(ctx, e))

	require.NoError(t, e.Complete(true, "", now.Add(time.Second)))
	require.NoError(t, repo.Complete(ctx, e))

	stale, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	stale.Status = command.StatusPending
	require.NoError(t, stale.TimeOut(now.Add(time.Hour)))

	err = repo.Complete(ctx, stale)
	var terminal command.ErrAlreadyTerminal
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, command.StatusExecuted, terminal.Status)
}

func TestCommandRepositoryListing(t *testing.T) {
	ctx := context.Background()
	repo := NewCommandRepository()
	base := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	screenID := uuid.New()

	for i := 0; i < 3; i++ {
		e := command.NewEntry(screenID, "r1", "menu-1", command.RefreshContent, nil, "ops", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, e))
	}
	other := command.NewEntry(uuid.New(), "r1", "menu-2", command.Reboot, nil, "ops", base)
	require.NoError(t, repo.Create(ctx, other))

	got, err := repo.List(ctx, command.Filter{ScreenID: screenID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(2*time.Minute), got[0].IssuedAt)

	stale, err := repo.ListPendingBefore(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stale, 2)
}
