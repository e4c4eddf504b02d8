package health

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/metrics"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// DefaultPollInterval is the monitor cadence when none is configured
const DefaultPollInterval = 15 * time.Second

// Lister supplies the screens to evaluate
type Lister interface {
	List(ctx context.Context, filter screen.Filter) ([]*screen.Screen, error)
}

// Monitor periodically re-evaluates every screen and reports transitions.
// It only reads screens.
type Monitor struct {
	screens   Lister
	publisher events.Publisher
	clock     clock.Clock
	interval  time.Duration
	logger    zerolog.Logger

	// last status per screen; entries for deleted screens age out
	last *cache.Cache

	mu      sync.RWMutex
	summary Summary
	polled  time.Time
}

// NewMonitor creates a health monitor
func NewMonitor(screens Lister, publisher events.Publisher, clk clock.Clock, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		screens:   screens,
		publisher: publisher,
		clock:     clk,
		interval:  interval,
		logger:    logger.With().Str("component", "health-monitor").Logger(),
		last:      cache.New(10*interval, 20*interval),
	}
}

// Run polls until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", m.interval).Msg("health monitor started")
	for {
		if _, err := m.Poll(ctx); err != nil {
			m.logger.Error().Err(err).Msg("health poll failed")
		}
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("health monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll evaluates every screen once and returns the fleet summary
func (m *Monitor) Poll(ctx context.Context) (Summary, error) {
	screens, err := m.screens.List(ctx, screen.Filter{})
	if err != nil {
		return Summary{}, err
	}

	now := m.clock.Now()
	for _, s := range screens {
		m.observe(ctx, s, Evaluate(s, now), now)
	}

	sum := Summarize(screens, now)
	for _, st := range Statuses {
		metrics.ScreensByStatus.WithLabelValues(string(st)).Set(float64(sum.Count(st)))
	}

	m.mu.Lock()
	m.summary = sum
	m.polled = now
	m.mu.Unlock()

	m.logger.Debug().
		Int("total", sum.Total).
		Int("online", sum.Online).
		Int("warning", sum.Warning).
		Int("error", sum.Error).
		Int("offline", sum.Offline).
		Msg("health poll complete")
	return sum, nil
}

func (m *Monitor) observe(ctx context.Context, s *screen.Screen, status Status, now time.Time) {
	key := s.ID.String()
	prev, seen := m.last.Get(key)
	m.last.SetDefault(key, status)

	if !seen || prev.(Status) == status {
		return
	}

	from := prev.(Status)
	metrics.StatusTransitions.WithLabelValues(string(from), string(status)).Inc()
	m.logger.Info().
		Str("screenId", key).
		Str("name", s.Name).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("screen status changed")

	if err := m.publisher.Publish(ctx, events.Event{
		Type:      events.ScreenStatusChanged,
		ScreenID:  s.ID,
		Timestamp: now,
		Data:      map[string]string{"from": string(from), "to": string(status)},
	}); err != nil {
		m.logger.Warn().Err(err).Str("screenId", key).Msg("failed to publish status change")
	}
}

// Last returns the status recorded for a screen by the most recent poll
func (m *Monitor) Last(id uuid.UUID) (Status, bool) {
	v, ok := m.last.Get(id.String())
	if !ok {
		return "", false
	}
	return v.(Status), true
}

// Summary returns the most recent fleet summary and when it was taken
func (m *Monitor) Summary() (Summary, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary, m.polled
}
