package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	"github.com/piragazh/feasto-signage/internal/fleetd/schedule"
)

// ListContent handles GET /content?wall=&screen=
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	const op = "ListContent"
	log := h.reqLogger(r, op)
	q := r.URL.Query()

	var filter content.ItemFilter
	if name := q.Get("wall"); name != "" {
		filter.Kind = content.TargetWall
		filter.WallName = name
	}
	if raw := q.Get("screen"); raw != "" {
		id, err := parseID(raw, op, "screen")
		if err != nil {
			writeError(w, err, log)
			return
		}
		if filter.Kind != "" {
			writeError(w, invalid(op, "filter by wall or screen, not both"), log)
			return
		}
		filter.Kind = content.TargetScreen
		filter.ScreenID = id
	}

	items, err := h.content.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, err, log)
		return
	}
	resp := v1alpha1.ContentItemList{
		TypeMeta: v1alpha1.NewTypeMeta("ContentItemList"),
		Items:    make([]v1alpha1.ContentItem, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, itemToAPI(it))
	}
	writeJSON(w, http.StatusOK, resp, log)
}

// CreateContent handles POST /content
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	const op = "CreateContent"
	log := h.reqLogger(r, op)

	var req v1alpha1.ContentItem
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	item, err := h.content.CreateItem(r.Context(), itemFromAPI(&req))
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusCreated, itemToAPI(item), log)
}

// GetContent handles GET /content/{id}
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	const op = "GetContent"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "content")
	if err != nil {
		writeError(w, err, log)
		return
	}
	item, err := h.content.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, itemToAPI(item), log)
}

// UpdateContent handles PUT /content/{id}. A non-zero metadata.version
// must match the stored version.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	const op = "UpdateContent"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "content")
	if err != nil {
		writeError(w, err, log)
		return
	}
	var req v1alpha1.ContentItem
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	item := itemFromAPI(&req)
	item.ID = id

	item, err = h.content.UpdateItem(r.Context(), item)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, itemToAPI(item), log)
}

// DeleteContent handles DELETE /content/{id}
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	const op = "DeleteContent"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "content")
	if err != nil {
		writeError(w, err, log)
		return
	}
	if err := h.content.DeleteItem(r.Context(), id); err != nil {
		writeError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPlaylists handles GET /playlists?wall=
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r, "ListPlaylists")

	playlists, err := h.content.ListPlaylists(r.Context(), r.URL.Query().Get("wall"))
	if err != nil {
		writeError(w, err, log)
		return
	}
	resp := v1alpha1.PlaylistList{
		TypeMeta: v1alpha1.NewTypeMeta("PlaylistList"),
		Items:    make([]v1alpha1.Playlist, 0, len(playlists)),
	}
	for _, p := range playlists {
		resp.Items = append(resp.Items, playlistToAPI(p))
	}
	writeJSON(w, http.StatusOK, resp, log)
}

// CreatePlaylist handles POST /playlists
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	const op = "CreatePlaylist"
	log := h.reqLogger(r, op)

	var req v1alpha1.Playlist
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	p, err := h.content.CreatePlaylist(r.Context(), playlistFromAPI(&req))
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusCreated, playlistToAPI(p), log)
}

// GetPlaylist handles GET /playlists/{id}
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	const op = "GetPlaylist"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "playlist")
	if err != nil {
		writeError(w, err, log)
		return
	}
	p, err := h.content.GetPlaylist(r.Context(), id)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, playlistToAPI(p), log)
}

// UpdatePlaylist handles PUT /playlists/{id}
func (h *Handler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	const op = "UpdatePlaylist"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "playlist")
	if err != nil {
		writeError(w, err, log)
		return
	}
	var req v1alpha1.Playlist
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	p := playlistFromAPI(&req)
	p.ID = id

	p, err = h.content.UpdatePlaylist(r.Context(), p)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, playlistToAPI(p), log)
}

// DeletePlaylist handles DELETE /playlists/{id}
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	const op = "DeletePlaylist"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "playlist")
	if err != nil {
		writeError(w, err, log)
		return
	}
	if err := h.content.DeletePlaylist(r.Context(), id); err != nil {
		writeError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckSchedule handles POST /schedule/check
func (h *Handler) CheckSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "CheckSchedule"
	log := h.reqLogger(r, op)

	var req v1alpha1.ScheduleCheckRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	spec := scheduleFromAPI(&req.Schedule)
	if err := spec.Validate(); err != nil {
		writeError(w, err, log)
		return
	}
	at := req.At
	if at.IsZero() {
		at = h.clock.Now()
	}

	resp := v1alpha1.ScheduleCheck{
		At:       at,
		Eligible: schedule.IsEligible(spec, req.IsActive, at),
	}
	for _, tr := range spec.MidnightRanges() {
		resp.Warnings = append(resp.Warnings, "time range "+tr.Start+"-"+tr.End+" crosses midnight and never matches")
	}
	writeJSON(w, http.StatusOK, resp, log)
}
