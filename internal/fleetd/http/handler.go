// Package http serves the operator API and the device channel
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/clock"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	"github.com/piragazh/feasto-signage/internal/fleetd/metrics"
	"github.com/piragazh/feasto-signage/internal/fleetd/ratelimit"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
	"github.com/piragazh/feasto-signage/internal/fleetd/timeline"
	"github.com/piragazh/feasto-signage/internal/fleetd/wall"
)

const maxBodyBytes = 1 << 20

// WallService is the wall composer as seen by the API
type WallService interface {
	List(ctx context.Context) ([]*wall.Wall, error)
	Get(ctx context.Context, name string) (*wall.Wall, error)
	Provision(ctx context.Context, req wall.ProvisionRequest) (*wall.Wall, error)
	Timeline(ctx context.Context, name string) (*timeline.Timeline, error)
	NowPlaying(ctx context.Context, name string) (timeline.Playback, error)
	ScreenTimeline(ctx context.Context, id uuid.UUID) (*timeline.Timeline, error)
}

// Options wires the handler's collaborators
type Options struct {
	Screens  screen.Service
	Commands command.Service
	Content  content.Service
	Walls    WallService

	// Limiter throttles device routes; nil disables limiting
	Limiter ratelimit.Service
	// Hub tracks device websocket connections; nil disables the ws route
	Hub *Hub
	// Ready reports whether dependencies are reachable
	Ready func(ctx context.Context) error

	Clock                    clock.Clock
	SweepTimeout             time.Duration
	DefaultHeartbeatInterval int
	Logger                   zerolog.Logger
}

// Handler encapsulates the HTTP API
type Handler struct {
	screens  screen.Service
	commands command.Service
	content  content.Service
	walls    WallService
	limiter  ratelimit.Service
	hub      *Hub
	ready    func(ctx context.Context) error
	clock    clock.Clock

	sweepTimeout    time.Duration
	defaultInterval int
	logger          zerolog.Logger
}

// NewHandler creates the API handler
func NewHandler(opts Options) *Handler {
	h := &Handler{
		screens:         opts.Screens,
		commands:        opts.Commands,
		content:         opts.Content,
		walls:           opts.Walls,
		limiter:         opts.Limiter,
		hub:             opts.Hub,
		ready:           opts.Ready,
		clock:           opts.Clock,
		sweepTimeout:    opts.SweepTimeout,
		defaultInterval: opts.DefaultHeartbeatInterval,
		logger:          opts.Logger.With().Str("component", "http").Logger(),
	}
	if h.clock == nil {
		h.clock = clock.Real{}
	}
	if h.sweepTimeout <= 0 {
		h.sweepTimeout = 5 * time.Minute
	}
	if h.defaultInterval <= 0 {
		h.defaultInterval = screen.DefaultHeartbeatInterval
	}
	return h
}

// Router returns the HTTP router for every endpoint
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestIDHeaderMiddleware)
	r.Use(recoverMiddleware(h.logger))
	r.Use(logMiddleware(h.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1alpha1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(h.limit(ratelimit.TypeOperatorAPI, nil))

			r.Route("/screens", func(r chi.Router) {
				r.Get("/", h.ListScreens)
				r.Post("/", h.CreateScreen)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetScreen)
					r.Delete("/", h.DeleteScreen)
					r.Put("/wall", h.UpdateWall)
					r.Put("/groups", h.SetGroups)
					r.Get("/timeline", h.ScreenTimeline)
					r.Post("/issues/resolve", h.ResolveAllIssues)
					r.Post("/issues/{issueID}/resolve", h.ResolveIssue)
					r.Delete("/issues/resolved", h.ClearResolvedIssues)
				})
			})

			r.Route("/commands", func(r chi.Router) {
				r.Get("/", h.ListCommands)
				r.Post("/", h.IssueCommand)
				r.Post("/sweep", h.SweepCommands)
				r.Get("/{id}", h.GetCommand)
			})

			r.Route("/content", func(r chi.Router) {
				r.Get("/", h.ListContent)
				r.Post("/", h.CreateContent)
				r.Get("/{id}", h.GetContent)
				r.Put("/{id}", h.UpdateContent)
				r.Delete("/{id}", h.DeleteContent)
			})

			r.Route("/playlists", func(r chi.Router) {
				r.Get("/", h.ListPlaylists)
				r.Post("/", h.CreatePlaylist)
				r.Get("/{id}", h.GetPlaylist)
				r.Put("/{id}", h.UpdatePlaylist)
				r.Delete("/{id}", h.DeletePlaylist)
			})

			r.Route("/walls", func(r chi.Router) {
				r.Get("/", h.ListWalls)
				r.Post("/", h.ProvisionWall)
				r.Get("/{name}", h.GetWall)
				r.Get("/{name}/timeline", h.WallTimeline)
				r.Get("/{name}/now-playing", h.NowPlaying)
			})

			r.Get("/health", h.HealthSummary)
			r.Post("/schedule/check", h.CheckSchedule)
		})

		// Device channel, limited per screen
		r.Route("/devices/{id}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(10 * time.Second))
				r.Use(h.limit(ratelimit.TypeDevice, screenSubject))

				r.Post("/heartbeat", h.DeviceHeartbeat)
				r.Post("/issues", h.DeviceIssue)
				r.Get("/command", h.DeviceCommand)
				r.Post("/commands/{entryID}/ack", h.DeviceAck)
			})
			if h.hub != nil {
				r.With(h.limit(ratelimit.TypeDeviceWS, screenSubject)).Get("/ws", h.ServeWs)
			}
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": "no such endpoint"}, h.logger)
		})
	})

	return r
}

func (h *Handler) limit(limitType string, subject func(*http.Request) string) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimit.Middleware(h.limiter, h.logger, ratelimit.Options{
		LimitType: limitType,
		Subject:   subject,
	})
}

func screenSubject(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()}, h.logger)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// reqLogger returns the handler logger tagged with the request id
func (h *Handler) reqLogger(r *http.Request, op string) zerolog.Logger {
	return h.logger.With().
		Str("requestId", middleware.GetReqID(r.Context())).
		Str("operation", op).
		Logger()
}
