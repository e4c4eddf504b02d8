package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	"github.com/piragazh/feasto-signage/internal/fleetd/health"
	"github.com/piragazh/feasto-signage/internal/fleetd/metrics"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// DeviceHeartbeat handles POST /devices/{id}/heartbeat
func (h *Handler) DeviceHeartbeat(w http.ResponseWriter, r *http.Request) {
	const op = "DeviceHeartbeat"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	resp, err := h.heartbeat(r.Context(), id)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, resp, log)
}

// DeviceIssue handles POST /devices/{id}/issues
func (h *Handler) DeviceIssue(w http.ResponseWriter, r *http.Request) {
	const op = "DeviceIssue"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	var req v1alpha1.IssueReport
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}
	issue, err := h.reportIssue(r.Context(), id, req)
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusCreated, issue, log)
}

// DeviceCommand handles GET /devices/{id}/command. No pending command is 204.
func (h *Handler) DeviceCommand(w http.ResponseWriter, r *http.Request) {
	const op = "DeviceCommand"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	s, err := h.screens.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, log)
		return
	}
	pc := pendingToAPI(s.PendingCommand)
	if pc == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, pc, log)
}

// DeviceAck handles POST /devices/{id}/commands/{entryID}/ack
func (h *Handler) DeviceAck(w http.ResponseWriter, r *http.Request) {
	const op = "DeviceAck"
	log := h.reqLogger(r, op)

	id, err := parseID(chi.URLParam(r, "id"), op, "screen")
	if err != nil {
		writeError(w, err, log)
		return
	}
	entryID, err := parseID(chi.URLParam(r, "entryID"), op, "command")
	if err != nil {
		writeError(w, err, log)
		return
	}
	var req v1alpha1.CommandAck
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err, log)
		return
	}

	entry, err := h.acknowledge(r.Context(), id, v1alpha1.AckPayload{
		CommandID:    entryID,
		Success:      req.Success,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, commandToAPI(entry), log)
}

// The helpers below are shared by the HTTP routes and the websocket channel.

func (h *Handler) heartbeat(ctx context.Context, id uuid.UUID) (*v1alpha1.HeartbeatResponse, error) {
	s, err := h.screens.RecordHeartbeat(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.HeartbeatsTotal.Inc()
	return &v1alpha1.HeartbeatResponse{
		Health:         v1alpha1.HealthStatus(health.Evaluate(s, h.clock.Now())),
		PendingCommand: pendingToAPI(s.PendingCommand),
	}, nil
}

func (h *Handler) reportIssue(ctx context.Context, id uuid.UUID, req v1alpha1.IssueReport) (*v1alpha1.Issue, error) {
	issue, err := h.screens.ReportIssue(ctx, id, screen.IssueKind(req.Kind), req.Message, req.Severity)
	if err != nil {
		return nil, err
	}
	return &v1alpha1.Issue{
		ID:        issue.ID,
		Kind:      string(issue.Kind),
		Message:   issue.Message,
		Severity:  issue.Severity,
		Timestamp: issue.Timestamp,
	}, nil
}

func (h *Handler) acknowledge(ctx context.Context, id uuid.UUID, ack v1alpha1.AckPayload) (*command.Entry, error) {
	return h.commands.Acknowledge(ctx, command.Ack{
		EntryID:      ack.CommandID,
		ScreenID:     id,
		Success:      ack.Success,
		ErrorMessage: ack.ErrorMessage,
	})
}

func pendingToAPI(pc *screen.PendingCommand) *v1alpha1.PendingCommand {
	if pc == nil {
		return nil
	}
	return &v1alpha1.PendingCommand{
		Command:   pc.Command,
		CommandID: pc.LogEntryID,
		IssuedAt:  pc.IssuedAt,
	}
}
