package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
)

// ListCommands handles GET /commands?screen=&status=&limit=
func (h *Handler) ListCommands(w http.ResponseWriter, r *http.Request) {
	const op = "ListCommands"
	log := h.reqLogger(r, op)
	q := r.URL.Query()

	var filter command.Filter
	if raw := q.Get("screen"); raw != "" {
		id, err := parseID(raw, op, "screen")
		if err != nil {
			writeError(w, err, log)
			return
		}
		filter.ScreenID = id
	}
	if raw := q.Get("status"); raw != "" {
		filter.Status = command.Status(raw)
		if !filter.Status.Valid() {
			writeError(w, invalid(op, "unknown status: "+raw), log)
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, invalid(op, "limit must be a non-negative integer"), log)
			return
		}
		filter.Limit = n
	}

	entries, err := h.commands.List(r.Context(), filter)
	if err != nil {
		writeError(w, err, log)
		return
	}
	resp := v1alpha1.CommandList{
		TypeMeta: v1alpha1.NewTypeMeta("CommandList"),
		Items:    make([]v1alpha1.Command, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Items = append(resp.Items, commandToAPI(e))
	}
	writeJSON(w, http.StatusOK, resp, log)
}

// IssueCommand handles POST /commands
func (h *Handler) IssueCommand(w http.ResponseWriter, r *http.Request) {
	const op = "IssueCommand"
	log := h.reqLogger(r, op)

	var req v1alpha1.CommandIssueRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	if req.ScreenID == uuid.Nil {
		writeError(w, invalid(op, "screenId is required"), log)
		return
	}

	entry, err := h.commands.Issue(r.Context(), command.IssueRequest{
		ScreenID: req.ScreenID,
		Command:  req.Command,
		Params:   req.Params,
		IssuedBy: req.IssuedBy,
	})
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusCreated, commandToAPI(entry), log)
}

// GetCommand handles GET /commands/{id}
func (h *Handler) GetCommand(w http.ResponseWriter, r *http.Request) {
	const op = "GetCommand"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "command")
	if err != nil {
		writeError(w, err, log)
		return
	}
	entry, err := h.commands.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, commandToAPI(entry), log)
}

// SweepCommands handles POST /commands/sweep. Commands are never timed
// out automatically; this is the operator's explicit sweep.
func (h *Handler) SweepCommands(w http.ResponseWriter, r *http.Request) {
	const op = "SweepCommands"
	log := h.reqLogger(r, op)

	var req v1alpha1.SweepRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, op, &req); err != nil {
			writeError(w, err, log)
			return
		}
	}
	if req.TimeoutSeconds < 0 {
		writeError(w, invalid(op, "timeoutSeconds must not be negative"), log)
		return
	}
	timeout := h.sweepTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	res, err := h.commands.Sweep(r.Context(), timeout)
	if err != nil {
		writeError(w, err, log)
		return
	}
	resp := v1alpha1.SweepResponse{
		TypeMeta: v1alpha1.NewTypeMeta("SweepResult"),
		Cutoff:   res.Cutoff,
		TimedOut: make([]v1alpha1.Command, 0, len(res.TimedOut)),
	}
	for _, e := range res.TimedOut {
		resp.TimedOut = append(resp.TimedOut, commandToAPI(e))
	}
	log.Info().Int("timedOut", len(res.TimedOut)).Dur("timeout", timeout).Msg("command sweep finished")
	writeJSON(w, http.StatusOK, resp, log)
}
