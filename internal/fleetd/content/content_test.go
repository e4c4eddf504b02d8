package content_test

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
	"github.com/piragazh/feasto-signage/internal/fleetd/memory"
	"github.com/piragazh/feasto-signage/internal/fleetd/schedule"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func wallItem(wall string) *content.Item {
	return &content.Item{
		Target:    content.WallTarget(wall),
		Title:     "Lunch specials",
		MediaURL:  "https://cdn.example.com/lunch.mp4",
		MediaType: content.MediaVideo,
		Duration:  15,
		Priority:  5,
		IsActive:  true,
	}
}

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*content.Item)
		ok     bool
	}{
		{name: "valid", modify: func(*content.Item) {}, ok: true},
		{name: "empty title", modify: func(i *content.Item) { i.Title = " " }},
		{name: "relative url", modify: func(i *content.Item) { i.MediaURL = "lunch.mp4" }},
		{name: "unknown media type", modify: func(i *content.Item) { i.MediaType = "hologram" }},
		{name: "zero duration", modify: func(i *content.Item) { i.Duration = 0 }},
		{name: "priority too low", modify: func(i *content.Item) { i.Priority = 0 }},
		{name: "priority too high", modify: func(i *content.Item) { i.Priority = 11 }},
		{name: "priority bounds", modify: func(i *content.Item) { i.Priority = 10 }, ok: true},
		{name: "negative layer", modify: func(i *content.Item) { i.Layer = -1 }},
		{name: "wall target without name", modify: func(i *content.Item) { i.Target = content.WallTarget("") }},
		{name: "screen target without id", modify: func(i *content.Item) { i.Target = content.ScreenTarget(uuid.Nil) }},
		{name: "screen content on a layer", modify: func(i *content.Item) {
			i.Target = content.ScreenTarget(uuid.New())
			i.Layer = 1
		}},
		{name: "both target payloads", modify: func(i *content.Item) { i.Target.ScreenID = uuid.New() }},
		{name: "bad schedule", modify: func(i *content.Item) {
			i.Schedule = schedule.Spec{Enabled: true, Recurring: &schedule.Recurring{Enabled: true}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := wallItem("front")
			tt.modify(item)
			err := item.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, werrors.IsInvalidInput(err))
		})
	}
}

func TestPlaylistValidateRejectsEmpty(t *testing.T) {
	p := &content.Playlist{WallName: "front", Name: "breakfast", Priority: 1}
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, werrors.IsInvalidInput(err))

	p.ContentIDs = []uuid.UUID{uuid.New()}
	assert.NoError(t, p.Validate())
}

func TestItemEligible(t *testing.T) {
	item := wallItem("front")
	assert.True(t, item.Eligible(now))

	item.IsActive = false
	assert.False(t, item.Eligible(now))

	end := now.Add(-time.Minute)
	item.IsActive = true
	item.Schedule = schedule.Spec{Enabled: true, EndDate: &end}
	assert.False(t, item.Eligible(now))
}

type fixture struct {
	svc     content.Service
	repo    *memory.ContentRepository
	screens *memory.ScreenRepository
	pub     *capturePublisher
}

type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func newFixture() *fixture {
	f := &fixture{
		repo:    memory.NewContentRepository(),
		screens: memory.NewScreenRepository(),
		pub:     &capturePublisher{},
	}
	f.svc = content.NewService(f.repo, f.screens, f.pub, clock.NewMock(now), zerolog.Nop())
	return f
}

func TestCreateItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, wallItem("front"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.Equal(t, 1, item.Version)
	assert.Equal(t, now, item.CreatedAt)

	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.ContentChanged, f.pub.events[0].Type)
	assert.Equal(t, "created", f.pub.events[0].Data["action"])
}

func TestCreateItemRejectsInvalidWithoutWriting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bad := wallItem("front")
	bad.Duration = -5
	_, err := f.svc.CreateItem(ctx, bad)
	require.Error(t, err)
	assert.Equal(t, werrors.CodeInvalidInput, werrors.CodeOf(err))

	items, err := f.svc.ListItems(ctx, content.ItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, f.pub.events)
}

func TestCreateItemForScreen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item := wallItem("")
	item.Target = content.ScreenTarget(uuid.New())
	_, err := f.svc.CreateItem(ctx, item)
	require.Error(t, err)
	assert.True(t, werrors.IsNotFound(err))

	sc, err := screen.NewScreen("r1", "menu-1", 60, nil)
	require.NoError(t, err)
	require.NoError(t, f.screens.Save(ctx, sc))

	item.Target = content.ScreenTarget(sc.ID)
	created, err := f.svc.CreateItem(ctx, item)
	require.NoError(t, err)

	items, err := f.svc.ListItems(ctx, content.ItemFilter{ScreenID: sc.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
}

func TestUpdateItemVersionConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, wallItem("front"))
	require.NoError(t, err)

	stale := *item
	item.Title = "Dinner specials"
	updated, err := f.svc.UpdateItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	stale.Title = "Brunch"
	_, err = f.svc.UpdateItem(ctx, &stale)
	require.Error(t, err)
	assert.Equal(t, werrors.CodeVersionConflict, werrors.CodeOf(err))
}

func TestDeleteItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item, err := f.svc.CreateItem(ctx, wallItem("front"))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteItem(ctx, item.ID))

	_, err = f.svc.GetItem(ctx, item.ID)
	assert.True(t, werrors.IsNotFound(err))
	assert.True(t, werrors.IsNotFound(f.svc.DeleteItem(ctx, item.ID)))
}

func TestCreatePlaylist(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svc.CreateItem(ctx, wallItem("front"))
	require.NoError(t, err)
	other, err := f.svc.CreateItem(ctx, wallItem("back"))
	require.NoError(t, err)

	tests := []struct {
		name string
		ids  []uuid.UUID
		code string
	}{
		{name: "empty", ids: nil, code: werrors.CodeInvalidInput},
		{name: "unknown item", ids: []uuid.UUID{uuid.New()}, code: werrors.CodeInvalidInput},
		{name: "item of another wall", ids: []uuid.UUID{a.ID, other.ID}, code: werrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreatePlaylist(ctx, &content.Playlist{
				WallName: "front", Name: tt.name, ContentIDs: tt.ids, Priority: 1, IsActive: true,
			})
			require.Error(t, err)
			assert.Equal(t, tt.code, werrors.CodeOf(err))
		})
	}

	p, err := f.svc.CreatePlaylist(ctx, &content.Playlist{
		WallName: "front", Name: "lunch", ContentIDs: []uuid.UUID{a.ID, a.ID}, Loop: true, Priority: 3, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)

	_, err = f.svc.CreatePlaylist(ctx, &content.Playlist{
		WallName: "front", Name: "lunch", ContentIDs: []uuid.UUID{a.ID}, Priority: 3,
	})
	assert.Equal(t, werrors.CodeConflict, werrors.CodeOf(err))

	lists, err := f.svc.ListPlaylists(ctx, "front")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, []uuid.UUID{a.ID, a.ID}, lists[0].ContentIDs)

	require.NoError(t, f.svc.DeletePlaylist(ctx, p.ID))
	_, err = f.svc.GetPlaylist(ctx, p.ID)
	assert.True(t, werrors.IsNotFound(err))
}

func TestMidnightRangeIsAccepted(t *testing.T) {
	f := newFixture()
	item := wallItem("front")
	item.Schedule = schedule.Spec{
		Enabled: true,
		Recurring: &schedule.Recurring{
			Enabled:    true,
			DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
			TimeRanges: []schedule.TimeRange{{Start: "22:00", End: "02:00"}},
		},
	}

	created, err := f.svc.CreateItem(context.Background(), item)
	require.NoError(t, err)
	assert.False(t, created.Eligible(time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)))
}
