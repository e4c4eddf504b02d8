package timeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
)

// maxCatchUp bounds how many missed loop boundaries are replayed one by one
// before the player jumps straight to now
const maxCatchUp = 64

// Source re-evaluates a timeline at an instant
type Source func(ctx context.Context, at time.Time) (*Timeline, error)

// Playing is the entry on one track at the cursor
type Playing struct {
	Layer  int
	Entry  Entry
	Offset time.Duration
}

// Playback is a snapshot of the player cursor
type Playback struct {
	At       time.Time
	Timeline *Timeline
	// CycleStart is when the current loop began
	CycleStart time.Time
	// Cycle counts completed loops since the player started
	Cycle    int
	Offset   time.Duration
	Playing  []Playing
	Finished bool
}

// Idle reports whether nothing is on screen
func (p Playback) Idle() bool {
	return len(p.Playing) == 0
}

// Player is a shared looping cursor over a timeline. When a looping cycle
// ends, playback restarts at offset zero from a timeline re-evaluated at the
// loop boundary.
type Player struct {
	mu      sync.Mutex
	source  Source
	clock   clock.Clock
	logger  zerolog.Logger
	current *Timeline
	started time.Time
	cycle   int
}

// NewPlayer creates a player that loads its first timeline on first use
func NewPlayer(source Source, clk clock.Clock, logger zerolog.Logger) *Player {
	return &Player{
		source: source,
		clock:  clk,
		logger: logger.With().Str("component", "player").Logger(),
	}
}

// Current advances the cursor to the clock's now and reports what plays
func (p *Player) Current(ctx context.Context) (Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	if p.current == nil || p.current.Idle() {
		if err := p.load(ctx, now); err != nil {
			return Playback{}, err
		}
	} else if p.finished(now) {
		if err := p.reload(ctx, now); err != nil {
			return Playback{}, err
		}
	}

	for i := 0; p.current.Loop() && p.current.Duration() > 0; i++ {
		boundary := p.started.Add(p.current.Duration())
		if now.Before(boundary) {
			break
		}
		if i >= maxCatchUp {
			boundary = now
		}
		if err := p.load(ctx, boundary); err != nil {
			return Playback{}, err
		}
		p.cycle++
		if p.current.Idle() {
			break
		}
	}

	offset := now.Sub(p.started)
	pb := Playback{
		At:         now,
		Timeline:   p.current,
		CycleStart: p.started,
		Cycle:      p.cycle,
		Offset:     offset,
	}
	if !p.current.Loop() && offset >= p.current.Duration() {
		pb.Finished = !p.current.Idle()
		return pb, nil
	}
	for _, tr := range p.current.Tracks {
		if e, into, ok := tr.At(offset); ok {
			pb.Playing = append(pb.Playing, Playing{Layer: tr.Layer, Entry: e, Offset: into})
		}
	}
	return pb, nil
}

func (p *Player) finished(now time.Time) bool {
	return !p.current.Loop() && !p.current.Idle() && now.Sub(p.started) >= p.current.Duration()
}

// reload re-evaluates a finished timeline. A run-once plan stays finished
// while the same content is still what would play; anything else restarts
// at now.
func (p *Player) reload(ctx context.Context, now time.Time) error {
	tl, err := p.source(ctx, now)
	if err != nil {
		return err
	}
	if !tl.Loop() && !tl.Idle() && sameContent(p.current, tl) {
		return nil
	}
	p.current = tl
	p.started = now
	p.cycle++
	p.logger.Debug().
		Time("at", now).
		Int("tracks", len(tl.Tracks)).
		Dur("duration", tl.Duration()).
		Msg("timeline replaced after finish")
	return nil
}

// sameContent compares the items each layer plays, ignoring order
func sameContent(a, b *Timeline) bool {
	if len(a.Tracks) != len(b.Tracks) {
		return false
	}
	for i := range a.Tracks {
		ta, tb := a.Tracks[i], b.Tracks[i]
		if ta.Layer != tb.Layer || ta.Loop != tb.Loop || len(ta.Entries) != len(tb.Entries) {
			return false
		}
		seen := make(map[uuid.UUID]int, len(ta.Entries))
		for _, e := range ta.Entries {
			seen[e.ItemID]++
		}
		for _, e := range tb.Entries {
			if seen[e.ItemID] == 0 {
				return false
			}
			seen[e.ItemID]--
		}
	}
	return true
}

func (p *Player) load(ctx context.Context, at time.Time) error {
	tl, err := p.source(ctx, at)
	if err != nil {
		return err
	}
	p.current = tl
	p.started = at
	p.logger.Debug().
		Time("at", at).
		Int("tracks", len(tl.Tracks)).
		Dur("duration", tl.Duration()).
		Msg("timeline loaded")
	return nil
}
