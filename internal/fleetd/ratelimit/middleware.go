package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// Options tune a rate limit middleware
type Options struct {
	// LimitType selects the registered limit
	LimitType string

	// Subject extracts the key subject, typically a screen id from the route
	Subject func(r *http.Request) string

	// SkipLimitCheck bypasses limiting for matching requests
	SkipLimitCheck func(r *http.Request) bool
}

// Middleware creates an HTTP middleware for rate limiting. Responses carry
// RateLimit-* headers, and rejected requests get 429 with Retry-After.
func Middleware(service Service, logger zerolog.Logger, options Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if options.SkipLimitCheck != nil && options.SkipLimitCheck(r) {
				next.ServeHTTP(w, r)
				return
			}

			reqLogger := logger.With().Str("requestId", middleware.GetReqID(r.Context())).Logger()
			key := buildKey(r, options)

			status, err := service.Allow(r.Context(), key)
			switch {
			case err == nil:
				setRateLimitHeaders(w, status)
				next.ServeHTTP(w, r)
			case werrors.IsRateLimited(err):
				setRateLimitHeaders(w, status)
				handleLimitExceeded(w, r, key, status, reqLogger)
			default:
				// Store outages must not take devices offline
				reqLogger.Error().
					Err(err).
					Str("type", options.LimitType).
					Str("path", r.URL.Path).
					Msg("rate limit store unavailable, allowing request")
				next.ServeHTTP(w, r)
			}
		})
	}
}

func buildKey(r *http.Request, options Options) LimitKey {
	key := LimitKey{
		Type:     options.LimitType,
		RemoteIP: realIP(r),
	}
	if options.Subject != nil {
		key.Subject = options.Subject(r)
	}
	return key
}

func setRateLimitHeaders(w http.ResponseWriter, status Status) {
	if status.Limit.Rate == 0 {
		return
	}
	w.Header().Set("RateLimit-Limit", strconv.Itoa(status.Limit.Rate))
	w.Header().Set("RateLimit-Remaining", strconv.Itoa(status.Remaining))
	w.Header().Set("RateLimit-Reset", strconv.FormatInt(status.Reset.Unix(), 10))
	if status.Limit.BurstSize > 0 {
		w.Header().Set("RateLimit-Burst", strconv.Itoa(status.Limit.BurstSize))
	}
}

func handleLimitExceeded(w http.ResponseWriter, r *http.Request, key LimitKey, status Status, logger zerolog.Logger) {
	retryAfter := int(time.Until(status.Reset).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	logger.Warn().
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Str("type", key.Type).
		Str("subject", key.Subject).
		Str("remoteIP", key.RemoteIP).
		Int("retryAfter", retryAfter).
		Msg("rate limit exceeded")

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    werrors.CodeRateLimited,
		"message": "too many requests, retry after " + strconv.Itoa(retryAfter) + "s",
	})
}

// realIP extracts the client address from proxy headers or RemoteAddr
func realIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// RegisterDefaultLimits configures the device limits from a rate and
// period. Websocket connects get a tenth of the request budget.
func RegisterDefaultLimits(s Service, device Limit) error {
	if err := s.RegisterLimit(TypeDevice, device); err != nil {
		return err
	}
	ws := Limit{Rate: device.Rate / 10, Period: device.Period, BurstSize: 2}
	if ws.Rate < 1 {
		ws.Rate = 1
	}
	if err := s.RegisterLimit(TypeDeviceWS, ws); err != nil {
		return err
	}
	return s.RegisterLimit(TypeOperatorAPI, Limit{Rate: device.Rate * 10, Period: device.Period, BurstSize: device.BurstSize * 10})
}
