package ratelimit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type service struct {
	store   Store
	logger  zerolog.Logger
	limits  map[string]Limit
	limitsM sync.RWMutex
}

// NewService creates a new rate limiting service
func NewService(store Store, logger zerolog.Logger) Service {
	return &service{
		store:  store,
		logger: logger.With().Str("component", "ratelimit").Logger(),
		limits: make(map[string]Limit),
	}
}

// RegisterLimit adds or updates a rate limit configuration
func (s *service) RegisterLimit(limitType string, limit Limit) error {
	if limitType == "" || limit.Rate <= 0 || limit.Period <= 0 || limit.BurstSize < 0 {
		return ErrInvalidLimit
	}

	s.limitsM.Lock()
	defer s.limitsM.Unlock()

	s.limits[limitType] = limit
	return nil
}

// Allow checks if an operation should be allowed
func (s *service) Allow(ctx context.Context, key LimitKey) (Status, error) {
	if key.Type == "" {
		return Status{}, ErrInvalidKey
	}

	limit := s.GetLimit(key.Type)
	if limit.Rate == 0 {
		s.logger.Warn().Str("type", key.Type).Msg("no rate limit configured for type")
		return Status{Allowed: true}, nil
	}

	status, err := s.store.Take(ctx, key, limit)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("type", key.Type).
			Str("subject", key.Subject).
			Msg("rate limit check failed")
		return Status{}, err
	}

	s.logger.Debug().
		Str("type", key.Type).
		Str("subject", key.Subject).
		Int("remaining", status.Remaining).
		Bool("allowed", status.Allowed).
		Msg("rate limit check")

	if !status.Allowed {
		return status, ErrLimitExceeded
	}
	return status, nil
}

// GetLimit returns the configured limit for a key type
func (s *service) GetLimit(limitType string) Limit {
	s.limitsM.RLock()
	defer s.limitsM.RUnlock()

	return s.limits[limitType]
}

// Reset clears rate limit counters for a key
func (s *service) Reset(ctx context.Context, key LimitKey) error {
	if key.Type == "" {
		return ErrInvalidKey
	}

	if err := s.store.Reset(ctx, key); err != nil {
		s.logger.Error().
			Err(err).
			Str("type", key.Type).
			Str("subject", key.Subject).
			Msg("failed to reset rate limit")
		return err
	}
	return nil
}
