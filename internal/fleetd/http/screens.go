package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// ListScreens handles GET /screens with optional restaurant, wall and group filters
func (h *Handler) ListScreens(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "ListScreens")
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

	now := h.clock.Now()
	resp := v1alpha1.ScreenList{
		TypeMeta: v1alpha1.NewTypeMeta("ScreenList"),
		Items:    make([]v1alpha1.Screen, 0, len(screens)),
	}
	for _, s := range screens {
		resp.Items = append(resp.Items, screenToAPI(s, now))
	}
	writeJSON(w, http.StatusOK, resp, log)
}

// CreateScreen handles POST /screens
func (h *Handler) CreateScreen(w http.ResponseWriter, r *http.Request) {
	const op = "CreateScreen"
	log := h.reqLogger(r, op)

	var req v1alpha1.ScreenCreateRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	interval := req.HeartbeatInterval
	if interval == 0 {
		interval = h.defaultInterval
	}

	s, err := h.screens.Create(r.Context(), screen.CreateRequest{
		RestaurantID:      req.RestaurantID,
		Name:              req.Name,
		HeartbeatInterval: interval,
		Wall:              wallConfigFromAPI(req.Wall),
		Groups:            req.Groups,
	})
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusCreated, screenToAPI(s, h.clock.Now()), log)
}

// GetScreen handles GET /screens/{id}. A non-UUID reference is looked up by name.
func (h *Handler) GetScreen(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "GetScreen")
	ref := chi.URLParam(r, "id")

	var (
		s   *screen.Screen
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		s, err = h.screens.Get(r.Context(), id)
	} else {
		s, err = h.screens.GetByName(r.Context(), ref)
	}
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, screenToAPI(s, h.clock.Now()), log)
}

// DeleteScreen handles DELETE /screens/{id}
func (h *Handler) DeleteScreen(w http.ResponseWriter, r *http.Request) {
	const op = "DeleteScreen"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	if err := h.screens.Delete(r.Context(), id); err != nil {
		writeError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateWall handles PUT /screens/{id}/wall
func (h *Handler) UpdateWall(w http.ResponseWriter, r *http.Request) {
	const op = "UpdateWall"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	var req v1alpha1.WallBindingRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}

	s, err := h.screens.UpdateWallConfig(r.Context(), id, wallConfigFromAPI(req.Wall))
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, screenToAPI(s, h.clock.Now()), log)
}

// SetGroups handles PUT /screens/{id}/groups
func (h *Handler) SetGroups(w http.ResponseWriter, r *http.Request) {
	const op = "SetGroups"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	var req v1alpha1.GroupsRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}

	s, err := h.screens.SetGroups(r.Context(), id, req.Groups)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, screenToAPI(s, h.clock.Now()), log)
}

// ScreenTimeline handles GET /screens/{id}/timeline
func (h *Handler) ScreenTimeline(w http.ResponseWriter, r *http.Request) {
	const op = "ScreenTimeline"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	tl, err := h.walls.ScreenTimeline(r.Context(), id)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, timelineToAPI(tl), log)
}

// ResolveIssue handles POST /screens/{id}/issues/{issueID}/resolve
func (h *Handler) ResolveIssue(w http.ResponseWriter, r *http.Request) {
	const op = "ResolveIssue"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	issueID, err := parseID(chi.URLParam(r, "issueID"), op, "issue")
	if err != nil {
		writeError(w, err, log)
		return
	}

	s, err := h.screens.ResolveIssue(r.Context(), id, issueID)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, screenToAPI(s, h.clock.Now()), log)
}

// ResolveAllIssues handles POST /screens/{id}/issues/resolve?kind=error|warning
func (h *Handler) ResolveAllIssues(w http.ResponseWriter, r *http.Request) {
	const op = "ResolveAllIssues"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	kind := screen.IssueKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		writeError(w, invalid(op, "kind must be error or warning"), log)
		return
	}

	s, err := h.screens.ResolveAll(r.Context(), id, kind)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, screenToAPI(s, h.clock.Now()), log)
}

// ClearResolvedIssues handles DELETE /screens/{id}/issues/resolved
func (h *Handler) ClearResolvedIssues(w http.ResponseWriter, r *http.Request) {
	const op = "ClearResolvedIssues"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	s, err := h.screens.ClearResolved(r.Context(), id)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, screenToAPI(s, h.clock.Now()), log)
}
