package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
)

// idleExpiry drops limiters for keys that have gone quiet
const idleExpiry = 30 * time.Minute

type bucket struct {
	limit   Limit
	limiter *rate.Limiter
}

// MemoryStore keeps a token bucket per key in process. Buckets refill at
// Rate per Period and hold up to Rate+BurstSize tokens.
type MemoryStore struct {
	mu      sync.Mutex
	buckets *cache.Cache
	clock   clock.Clock
}

// NewMemoryStore creates an in-process store
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		buckets: cache.New(idleExpiry, idleExpiry/2),
		clock:   clk,
	}
}

func keyString(key LimitKey) string {
	subject := key.Subject
	if subject == "" {
		subject = "ip:" + key.RemoteIP
	}
	return fmt.Sprintf("%s:%s", key.Type, subject)
}

// Take consumes one token
func (m *MemoryStore) Take(_ context.Context, key LimitKey, limit Limit) (Status, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return Status{}, ErrInvalidLimit
	}
	now := m.clock.Now()
	lim := m.limiter(keyString(key), limit)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	status := Status{
		Limit:     limit,
		Allowed:   allowed,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		Reset:     now,
	}
	if tokens < 1 {
		wait := (1 - tokens) / float64(lim.Limit())
		status.Reset = now.Add(time.Duration(wait * float64(time.Second)))
	}
	return status, nil
}

// Reset forgets a key's bucket
func (m *MemoryStore) Reset(_ context.Context, key LimitKey) error {
	m.buckets.Delete(keyString(key))
	return nil
}

func (m *MemoryStore) limiter(k string, limit Limit) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.buckets.Get(k); ok {
		b := v.(*bucket)
		if b.limit == limit {
			m.buckets.SetDefault(k, b)
			return b.limiter
		}
	}

	every := rate.Every(limit.Period / time.Duration(limit.Rate))
	lim := rate.NewLimiter(every, limit.Capacity())
	m.buckets.SetDefault(k, &bucket{limit: limit, limiter: lim})
	return lim
}
