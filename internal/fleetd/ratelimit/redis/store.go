// Package redis provides a Redis-backed rate limit store shared by all
// fleetd replicas
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	"github.com/piragazh/feasto-signage/internal/fleetd/ratelimit"
)

// Store counts operations in fixed windows of one Period
type Store struct {
	client redis.UniversalClient
	clock  clock.Clock
	prefix string
}

// NewStore creates a new Redis-backed rate limit store
func NewStore(client redis.UniversalClient, clk clock.Clock) *Store {
	return &Store{client: client, clock: clk, prefix: "fleet:rate"}
}

// keyStr converts a LimitKey to a Redis key
func (s *Store) keyStr(key ratelimit.LimitKey) string {
	subject := key.Subject
	if subject == "" {
		subject = "ip:" + key.RemoteIP
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, key.Type, subject)
}

// Take increments the window counter, starting the window on first use
func (s *Store) Take(ctx context.Context, key ratelimit.LimitKey, limit ratelimit.Limit) (ratelimit.Status, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return ratelimit.Status{}, ratelimit.ErrInvalidLimit
	}
	redisKey := s.keyStr(key)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, limit.Period)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Status{}, fmt.Errorf("%w: %v", ratelimit.ErrStore, err)
	}

	return window(limit, int(incr.Val()), ttl.Val(), s.clock.Now()), nil
}

// window derives a status from a counter and its remaining lifetime
func window(limit ratelimit.Limit, count int, ttl time.Duration, now time.Time) ratelimit.Status {
	if ttl < 0 {
		ttl = limit.Period
	}
	remaining := limit.Capacity() - count
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Status{
		Limit:     limit,
		Allowed:   count <= limit.Capacity(),
		Remaining: remaining,
		Reset:     now.Add(ttl),
	}
}

// Reset clears a rate limit counter
func (s *Store) Reset(ctx context.Context, key ratelimit.LimitKey) error {
	if err := s.client.Del(ctx, s.keyStr(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ratelimit.ErrStore, err)
	}
	return nil
}
