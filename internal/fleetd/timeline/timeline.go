// Package timeline orders eligible content into looping playback tracks and
// resolves which item has the floor when several compete for one wall.
package timeline

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/internal/fleetd/content"
)

// Entry is a content item placed on a track
type Entry struct {
	ItemID       uuid.UUID
	Title        string
	MediaURL     string
	MediaType    content.MediaType
	Priority     int
	DisplayOrder int
	SyncEnabled  bool
	Duration     time.Duration
	// Start and End are offsets from the start of the track's loop
	Start time.Duration
	End   time.Duration
}

// Track is one ordered playback sequence
type Track struct {
	Layer    int
	Loop     bool
	Entries  []Entry
	Duration time.Duration
}

// Idle reports whether the track has nothing to play
func (t Track) Idle() bool {
	return len(t.Entries) == 0
}

// At returns the entry playing offset into the track and how far into that
// entry playback is. Looping tracks wrap; a finished non-looping track and an
// idle track play nothing.
func (t Track) At(offset time.Duration) (Entry, time.Duration, bool) {
	if t.Idle() || t.Duration <= 0 || offset < 0 {
		return Entry{}, 0, false
	}
	if offset >= t.Duration {
		if !t.Loop {
			return Entry{}, 0, false
		}
		offset %= t.Duration
	}
	i := sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].End > offset
	})
	if i == len(t.Entries) {
		return Entry{}, 0, false
	}
	e := t.Entries[i]
	return e, offset - e.Start, true
}

// Timeline is the resolved playback plan for a target at an instant
type Timeline struct {
	Target content.Target
	At     time.Time
	// Tracks are ordered by layer. A target with nothing eligible has a
	// single idle track.
	Tracks []Track
	// Floor is the eligible item that wins a cross-item conflict
	Floor *Entry
}

// Duration is the length of the longest track, one full playback cycle
func (t *Timeline) Duration() time.Duration {
	var d time.Duration
	for _, tr := range t.Tracks {
		if tr.Duration > d {
			d = tr.Duration
		}
	}
	return d
}

// Loop reports whether any track restarts at its end
func (t *Timeline) Loop() bool {
	for _, tr := range t.Tracks {
		if tr.Loop && !tr.Idle() {
			return true
		}
	}
	return false
}

// Idle reports whether no track has anything to play
func (t *Timeline) Idle() bool {
	for _, tr := range t.Tracks {
		if !tr.Idle() {
			return false
		}
	}
	return true
}

// Track returns the track for a layer
func (t *Timeline) Track(layer int) (Track, bool) {
	for _, tr := range t.Tracks {
		if tr.Layer == layer {
			return tr, true
		}
	}
	return Track{}, false
}

// Resolve picks the item with the floor: highest priority, then lowest
// display order. Ties on both keep the earlier item.
func Resolve(items []*content.Item) (*content.Item, bool) {
	var best *content.Item
	for _, item := range items {
		if best == nil || outranks(item, best) {
			best = item
		}
	}
	return best, best != nil
}

func outranks(a, b *content.Item) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.DisplayOrder < b.DisplayOrder
}

// Eligible filters items to those aimed at target and playable at now
func Eligible(target content.Target, items []*content.Item, now time.Time) []*content.Item {
	out := make([]*content.Item, 0, len(items))
	for _, item := range items {
		if item.Target == target && item.Eligible(now) {
			out = append(out, item)
		}
	}
	return out
}

// Build resolves the timeline for target at now. Wall content is split into
// one looping track per layer; screen content plays on a single track.
// Within a track items run in display order, never priority order.
func Build(target content.Target, items []*content.Item, now time.Time) *Timeline {
	eligible := Eligible(target, items, now)

	tl := &Timeline{Target: target, At: now}
	if winner, ok := Resolve(eligible); ok {
		e := entryOf(winner)
		tl.Floor = &e
	}

	byLayer := make(map[int][]*content.Item)
	for _, item := range eligible {
		layer := item.Layer
		if target.Kind == content.TargetScreen {
			layer = 0
		}
		byLayer[layer] = append(byLayer[layer], item)
	}
	if len(byLayer) == 0 {
		tl.Tracks = []Track{{Layer: 0, Loop: true}}
		return tl
	}

	layers := make([]int, 0, len(byLayer))
	for l := range byLayer {
		layers = append(layers, l)
	}
	sort.Ints(layers)

	for _, l := range layers {
		members := byLayer[l]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].DisplayOrder < members[j].DisplayOrder
		})
		tl.Tracks = append(tl.Tracks, sequence(l, true, members))
	}
	return tl
}

// BuildPlaylist lays out a playlist as a single-track timeline. The playlist
// must itself be eligible, and only eligible member items play. Shuffle
// permutes the member order with rng.
func BuildPlaylist(p *content.Playlist, items []*content.Item, now time.Time, rng *rand.Rand) *Timeline {
	tl := &Timeline{Target: content.WallTarget(p.WallName), At: now}
	if !p.Eligible(now) {
		tl.Tracks = []Track{{Layer: 0, Loop: p.Loop}}
		return tl
	}

	byID := make(map[uuid.UUID]*content.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	members := make([]*content.Item, 0, len(p.ContentIDs))
	for _, id := range p.ContentIDs {
		item, ok := byID[id]
		if !ok || !item.Eligible(now) {
			continue
		}
		members = append(members, item)
	}
	if p.Shuffle && rng != nil {
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
	}

	if winner, ok := Resolve(members); ok {
		e := entryOf(winner)
		tl.Floor = &e
	}
	tl.Tracks = []Track{sequence(0, p.Loop, members)}
	return tl
}

// sequence places items back to back from offset zero
func sequence(layer int, loop bool, items []*content.Item) Track {
	tr := Track{Layer: layer, Loop: loop, Entries: make([]Entry, 0, len(items))}
	var offset time.Duration
	for _, item := range items {
		e := entryOf(item)
		e.Start = offset
		offset += e.Duration
		e.End = offset
		tr.Entries = append(tr.Entries, e)
	}
	tr.Duration = offset
	return tr
}

func entryOf(item *content.Item) Entry {
	return Entry{
		ItemID:       item.ID,
		Title:        item.Title,
		MediaURL:     item.MediaURL,
		MediaType:    item.MediaType,
		Priority:     item.Priority,
		DisplayOrder: item.DisplayOrder,
		SyncEnabled:  item.SyncEnabled,
		Duration:     time.Duration(item.Duration) * time.Second,
	}
}
