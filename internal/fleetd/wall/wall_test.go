package wall

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/health"
	"github.com/piragazh/feasto-signage/internal/fleetd/memory"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen/service"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func member(t *testing.T, wall string, grid screen.GridSize, row, col int) *screen.Screen {
	t.Helper()
	s, err := screen.NewScreen("r1", uuid.NewString(), 60, &screen.WallConfig{
		Enabled:  true,
		WallName: wall,
		Position: screen.Position{Row: row, Col: col},
		GridSize: grid,
	})
	require.NoError(t, err)
	return s
}

func TestComposeIncompleteWall(t *testing.T) {
	grid := screen.GridSize{Rows: 2, Cols: 2}
	screens := []*screen.Screen{
		member(t, "front", grid, 0, 0),
		member(t, "front", grid, 0, 1),
		member(t, "front", grid, 1, 1),
		member(t, "back", grid, 1, 0),
	}

	w, err := Compose("front", screens)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 4, w.Capacity())
	assert.False(t, w.Complete())
	assert.Equal(t, []screen.Position{{Row: 1, Col: 0}}, w.Missing())

	s, ok := w.At(1, 1)
	require.True(t, ok)
	assert.Equal(t, screens[2].ID, s.ID)
	_, ok = w.At(1, 0)
	assert.False(t, ok)

	cells := w.Cells()
	require.Len(t, cells, 3)
	assert.Equal(t, screen.Position{Row: 0, Col: 0}, cells[0].Position)
	assert.Equal(t, screen.Position{Row: 1, Col: 1}, cells[2].Position)
}

func TestComposeComplete(t *testing.T) {
	grid := screen.GridSize{Rows: 1, Cols: 2}
	w, err := Compose("front", []*screen.Screen{member(t, "front", grid, 0, 1), member(t, "front", grid, 0, 0)})
	require.NoError(t, err)
	assert.True(t, w.Complete())
	assert.Empty(t, w.Missing())
}

func TestComposeErrors(t *testing.T) {
	grid := screen.GridSize{Rows: 2, Cols: 2}

	_, err := Compose("front", []*screen.Screen{member(t, "front", grid, 0, 0), member(t, "front", grid, 0, 0)})
	require.Error(t, err)
	assert.True(t, werrors.IsConflict(err))

	_, err = Compose("front", []*screen.Screen{member(t, "front", grid, 0, 0), member(t, "front", screen.GridSize{Rows: 3, Cols: 3}, 2, 2)})
	require.Error(t, err)
	assert.True(t, werrors.IsInvalidInput(err))
}

func TestWallHealth(t *testing.T) {
	grid := screen.GridSize{Rows: 1, Cols: 3}
	alive := member(t, "front", grid, 0, 0)
	alive.Heartbeat(now.Add(-10 * time.Second))
	stale := member(t, "front", grid, 0, 1)
	stale.Heartbeat(now.Add(-3 * time.Minute))
	never := member(t, "front", grid, 0, 2)

	w, err := Compose("front", []*screen.Screen{alive, stale, never})
	require.NoError(t, err)
	sum := w.Health(now)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Count(health.Online))
	assert.Equal(t, 1, sum.Count(health.Warning))
	assert.Equal(t, 1, sum.Count(health.Offline))
}

type fixture struct {
	svc       *Service
	screens   *memory.ScreenRepository
	screenSvc *service.Service
	content   content.Service
	clock     *clock.Mock
}

func newFixture() *fixture {
	clk := clock.NewMock(now)
	screens := memory.NewScreenRepository()
	contentRepo := memory.NewContentRepository()
	screenSvc := service.New(screens, events.Discard, clk, zerolog.Nop())
	contentSvc := content.NewService(contentRepo, screens, events.Discard, clk, zerolog.Nop())
	return &fixture{
		svc:       NewService(screens, screenSvc, contentSvc, clk, zerolog.Nop()),
		screens:   screens,
		screenSvc: screenSvc,
		content:   contentSvc,
		clock:     clk,
	}
}

func TestProvision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	w, err := f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 2, Cols: 3, RestaurantID: "r1"})
	require.NoError(t, err)
	assert.True(t, w.Complete())
	assert.Equal(t, 6, w.Len())

	s, ok := w.At(1, 2)
	require.True(t, ok)
	assert.Equal(t, "front-r2c3", s.Name)

	_, err = f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 1, Cols: 1})
	assert.True(t, werrors.IsConflict(err))

	walls, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, walls, 1)
	assert.Equal(t, "front", walls[0].Name)
}

func TestProvisionValidation(t *testing.T) {
	f := newFixture()
	tests := []ProvisionRequest{
		{Name: "", Rows: 1, Cols: 1},
		{Name: "front", Rows: 0, Cols: 2},
		{Name: "front", Rows: 100, Cols: 100},
	}
	for _, req := range tests {
		_, err := f.svc.Provision(context.Background(), req)
		assert.True(t, werrors.IsInvalidInput(err), "%+v", req)
	}
}

func TestProvisionRollsBack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	taken, err := screen.NewScreen("r1", "front-r1c2", 60, nil)
	require.NoError(t, err)
	require.NoError(t, f.screens.Save(ctx, taken))

	_, err = f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 1, Cols: 3})
	require.Error(t, err)
	assert.True(t, werrors.IsConflict(err))

	all, err := f.screens.List(ctx, screen.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "screens created before the failure are removed")
}

func TestWallBindingMustMatchGrid(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 2, Cols: 2})
	require.NoError(t, err)
	_, err = f.svc.Provision(ctx, ProvisionRequest{Name: "back", Rows: 1, Cols: 1})
	require.NoError(t, err)

	stray, err := f.screenSvc.Create(ctx, screen.CreateRequest{Name: "stray"})
	require.NoError(t, err)
	_, err = f.screenSvc.UpdateWallConfig(ctx, stray.ID, &screen.WallConfig{
		Enabled:  true,
		WallName: "front",
		Position: screen.Position{Row: 2, Col: 2},
		GridSize: screen.GridSize{Rows: 3, Cols: 3},
	})
	require.Error(t, err)
	assert.True(t, werrors.IsInvalidInput(err))

	w, err := f.svc.Get(ctx, "front")
	require.NoError(t, err)
	assert.Equal(t, 4, w.Len())

	walls, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, walls, 2)
}

func TestListSkipsWallThatDoesNotCompose(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Provision(ctx, ProvisionRequest{Name: "back", Rows: 1, Cols: 1})
	require.NoError(t, err)

	// rows written before grid checks existed
	require.NoError(t, f.screens.Save(ctx, member(t, "front", screen.GridSize{Rows: 2, Cols: 2}, 0, 0)))
	require.NoError(t, f.screens.Save(ctx, member(t, "front", screen.GridSize{Rows: 3, Cols: 3}, 2, 2)))

	_, err = f.svc.Get(ctx, "front")
	assert.True(t, werrors.IsInvalidInput(err))

	walls, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, walls, 1)
	assert.Equal(t, "back", walls[0].Name)
}

func TestGetUnknownWall(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Get(context.Background(), "nowhere")
	assert.True(t, werrors.IsNotFound(err))
	_, err = f.svc.NowPlaying(context.Background(), "nowhere")
	assert.True(t, werrors.IsNotFound(err))
}

func wallItem(wall, title string, duration, priority, order int) *content.Item {
	return &content.Item{
		Target:       content.WallTarget(wall),
		Title:        title,
		MediaURL:     "https://cdn.example.com/" + title,
		MediaType:    content.MediaVideo,
		Duration:     duration,
		Priority:     priority,
		DisplayOrder: order,
		IsActive:     true,
	}
}

func TestTimelineAndNowPlaying(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 1, Cols: 2})
	require.NoError(t, err)
	_, err = f.content.CreateItem(ctx, wallItem("front", "menu", 30, 1, 1))
	require.NoError(t, err)
	_, err = f.content.CreateItem(ctx, wallItem("front", "promo", 10, 8, 2))
	require.NoError(t, err)

	tl, err := f.svc.Timeline(ctx, "front")
	require.NoError(t, err)
	require.Len(t, tl.Tracks, 1)
	assert.Equal(t, 40*time.Second, tl.Tracks[0].Duration)
	require.NotNil(t, tl.Floor)
	assert.Equal(t, "promo", tl.Floor.Title)

	pb, err := f.svc.NowPlaying(ctx, "front")
	require.NoError(t, err)
	require.Len(t, pb.Playing, 1)
	assert.Equal(t, "menu", pb.Playing[0].Entry.Title)

	f.clock.Advance(35 * time.Second)
	pb, err = f.svc.NowPlaying(ctx, "front")
	require.NoError(t, err)
	assert.Equal(t, "promo", pb.Playing[0].Entry.Title)
	assert.Equal(t, 5*time.Second, pb.Playing[0].Offset)
}

func TestPlaylistDrivesWall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 1, Cols: 1})
	require.NoError(t, err)
	a, err := f.content.CreateItem(ctx, wallItem("front", "a", 10, 1, 1))
	require.NoError(t, err)
	_, err = f.content.CreateItem(ctx, wallItem("front", "b", 10, 1, 2))
	require.NoError(t, err)
	_, err = f.content.CreatePlaylist(ctx, &content.Playlist{
		WallName: "front", Name: "only-a", ContentIDs: []uuid.UUID{a.ID}, Loop: true, IsActive: true, Priority: 5,
	})
	require.NoError(t, err)

	tl, err := f.svc.Timeline(ctx, "front")
	require.NoError(t, err)
	require.Len(t, tl.Tracks[0].Entries, 1)
	assert.Equal(t, "a", tl.Tracks[0].Entries[0].Title)
}

func TestNowPlayingMovesOnAfterRunOncePlaylist(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 1, Cols: 1})
	require.NoError(t, err)
	a, err := f.content.CreateItem(ctx, wallItem("front", "a", 10, 1, 1))
	require.NoError(t, err)
	once, err := f.content.CreatePlaylist(ctx, &content.Playlist{
		WallName: "front", Name: "once", ContentIDs: []uuid.UUID{a.ID}, IsActive: true, Priority: 5,
	})
	require.NoError(t, err)

	pb, err := f.svc.NowPlaying(ctx, "front")
	require.NoError(t, err)
	require.Len(t, pb.Playing, 1)

	f.clock.Advance(15 * time.Second)
	pb, err = f.svc.NowPlaying(ctx, "front")
	require.NoError(t, err)
	assert.True(t, pb.Finished)

	require.NoError(t, f.content.DeletePlaylist(ctx, once.ID))
	f.clock.Advance(time.Hour)

	tl, err := f.svc.Timeline(ctx, "front")
	require.NoError(t, err)
	require.False(t, tl.Idle())

	pb, err = f.svc.NowPlaying(ctx, "front")
	require.NoError(t, err)
	assert.False(t, pb.Finished)
	require.Len(t, pb.Playing, 1)
	assert.Equal(t, "a", pb.Playing[0].Entry.Title)
}

func TestScreenTimeline(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	w, err := f.svc.Provision(ctx, ProvisionRequest{Name: "front", Rows: 1, Cols: 2})
	require.NoError(t, err)
	_, err = f.content.CreateItem(ctx, wallItem("front", "shared", 20, 1, 1))
	require.NoError(t, err)

	left, _ := w.At(0, 0)
	right, _ := w.At(0, 1)

	own := wallItem("", "left-only", 5, 1, 1)
	own.Target = content.ScreenTarget(left.ID)
	_, err = f.content.CreateItem(ctx, own)
	require.NoError(t, err)

	tl, err := f.svc.ScreenTimeline(ctx, left.ID)
	require.NoError(t, err)
	assert.Equal(t, "left-only", tl.Tracks[0].Entries[0].Title)

	tl, err = f.svc.ScreenTimeline(ctx, right.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared", tl.Tracks[0].Entries[0].Title)

	_, err = f.svc.ScreenTimeline(ctx, uuid.New())
	assert.True(t, werrors.IsNotFound(err))
}
