// Package ratelimit throttles device traffic per screen
package ratelimit

import (
	"context"
	"time"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// Limit types registered by default
const (
	TypeDevice      = "device"
	TypeDeviceWS    = "device_ws"
	TypeOperatorAPI = "operator_api"
)

// LimitKey identifies a specific rate limit
type LimitKey struct {
	Type     string // e.g. "device", "device_ws"
	Subject  string // screen id or other unique identifier
	RemoteIP string // used when no subject is known
}

// Limit defines the rate limit configuration
type Limit struct {
	// Rate is the number of operations allowed per Period
	Rate int

	// Period is the time window for the rate
	Period time.Duration

	// BurstSize allows a short burst over the rate (optional)
	BurstSize int
}

// Capacity is the most operations a fresh key may perform at once
func (l Limit) Capacity() int {
	return l.Rate + l.BurstSize
}

// Status reports a key's standing after a Take
type Status struct {
	Limit     Limit
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Store handles rate limit state persistence
type Store interface {
	// Take consumes one operation for key and reports the resulting status
	Take(ctx context.Context, key LimitKey, limit Limit) (Status, error)

	// Reset clears a rate limit counter
	Reset(ctx context.Context, key LimitKey) error
}

// Service manages rate limiting for the application
type Service interface {
	// Allow consumes one operation. It returns ErrLimitExceeded alongside
	// the status when the key is over its limit.
	Allow(ctx context.Context, key LimitKey) (Status, error)

	// GetLimit returns the configured limit for a key type
	GetLimit(limitType string) Limit

	// RegisterLimit adds or updates a limit
	RegisterLimit(limitType string, limit Limit) error

	// Reset clears rate limit counters for a key
	Reset(ctx context.Context, key LimitKey) error
}

// Error values for rate limiting
var (
	ErrLimitExceeded = werrors.NewError(werrors.CodeRateLimited, "rate limit exceeded", "", werrors.ErrRateLimited)
	ErrInvalidLimit  = werrors.Validation("ratelimit", "invalid rate limit configuration")
	ErrInvalidKey    = werrors.Validation("ratelimit", "invalid rate limit key")
	ErrStore         = werrors.NewError("STORE_ERROR", "rate limit store error", "", nil)
)
