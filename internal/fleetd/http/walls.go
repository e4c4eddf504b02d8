package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/health"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
	"github.com/piragazh/feasto-signage/internal/fleetd/wall"
)

// ListWalls handles GET /walls
func (h *Handler) ListWalls(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "ListWalls")

	walls, err := h.walls.List(r.Context())
	if err != nil {
		writeError(w, err, log)
		return
	}
	now := h.clock.Now()
	resp := v1alpha1.WallList{
		TypeMeta: v1alpha1.NewTypeMeta("WallList"),
		Items:    make([]v1alpha1.Wall, 0, len(walls)),
	}
	for _, wl := range walls {
		resp.Items = append(resp.Items, wallToAPI(wl, now))
	}
	writeJSON(w, http.StatusOK, resp, log)
}

// GetWall handles GET /walls/{name}
func (h *Handler) GetWall(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "GetWall")

	wl, err := h.walls.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, wallToAPI(wl, h.clock.Now()), log)
}

// ProvisionWall handles POST /walls
func (h *Handler) ProvisionWall(w http.ResponseWriter, r *http.Request) {
	const op = "ProvisionWall"
	log := h.reqLogger(r, op)

	var req v1alpha1.WallProvisionRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	interval := req.HeartbeatInterval
	if interval == 0 {
		interval = h.defaultInterval
	}

	wl, err := h.walls.Provision(r.Context(), wall.ProvisionRequest{
		Name:              req.Name,
		Rows:              req.Rows,
		Cols:              req.Cols,
		RestaurantID:      req.RestaurantID,
		NamePrefix:        req.NamePrefix,
		HeartbeatInterval: interval,
		BezelCompensation: req.BezelCompensation,
		Groups:            req.Groups,
	})
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusCreated, wallToAPI(wl, h.clock.Now()), log)
}

// WallTimeline handles GET /walls/{name}/timeline
func (h *Handler) WallTimeline(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "WallTimeline")

	tl, err := h.walls.Timeline(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, timelineToAPI(tl), log)
}

// NowPlaying handles GET /walls/{name}/now-playing
func (h *Handler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "NowPlaying")
	name := chi.URLParam(r, "name")

	pb, err := h.walls.NowPlaying(r.Context(), name)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, playbackToAPI(name, pb), log)
}

// HealthSummary handles GET /health?restaurant=&wall=&group=
func (h *Handler) HealthSummary(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "HealthSummary")
	q := r.URL.Query()

	screens, err := h.screens.List(r.Context(), screen.Filter{
		RestaurantID: q.Get("restaurant"),
		WallName:     q.Get("wall"),
		Group:        q.Get("group"),
	})
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, summaryToAPI(health.Summarize(screens, h.clock.Now())), log)
}
