package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/metrics"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Time allowed to process one inbound device message
	messageTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Devices are not browsers and send no Origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connection is a middleman between the websocket connection and the hub
type connection struct {
	screenID uuid.UUID
	ws       *websocket.Conn
	send     chan []byte
	hub      *Hub
	logger   zerolog.Logger
}

// Hub tracks one control connection per screen and pushes commands to it
type Hub struct {
	mu     sync.Mutex
	conns  map[uuid.UUID]*connection
	closed bool
	logger zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]*connection),
		logger: logger.With().Str("component", "device-hub").Logger(),
	}
}

func (h *Hub) register(c *connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if old, ok := h.conns[c.screenID]; ok {
		// A reconnecting device replaces its stale connection
		close(old.send)
	}
	h.conns[c.screenID] = c
	metrics.DeviceConnections.Set(float64(len(h.conns)))
	h.logger.Info().
		Str("screenId", c.screenID.String()).
		Int("connections", len(h.conns)).
		Msg("device connected")
	return true
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[c.screenID]; !ok || cur != c {
		return
	}
	delete(h.conns, c.screenID)
	close(c.send)
	metrics.DeviceConnections.Set(float64(len(h.conns)))
	h.logger.Info().
		Str("screenId", c.screenID.String()).
		Int("connections", len(h.conns)).
		Msg("device disconnected")
}

// Connected reports whether a screen holds an open control connection
func (h *Hub) Connected(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[id]
	return ok
}

// Count returns the number of open connections
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Send queues a control message for a screen
func (h *Hub) Send(id uuid.UUID, msg *v1alpha1.ControlMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal control message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[id]
	if !ok {
		return fmt.Errorf("screen not connected: %s", id)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("screen connection buffer full: %s", id)
	}
}

// Notify pushes a freshly issued command. A screen without an open
// connection is skipped; it picks the command up on its next poll.
func (h *Hub) Notify(ctx context.Context, e *command.Entry) error {
	if !h.Connected(e.ScreenID) {
		return nil
	}
	return h.Send(e.ScreenID, commandMessage(e))
}

// Close drops every connection and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.conns {
		delete(h.conns, id)
		close(c.send)
	}
	metrics.DeviceConnections.Set(0)
}

func commandMessage(e *command.Entry) *v1alpha1.ControlMessage {
	return &v1alpha1.ControlMessage{
		TypeMeta:  v1alpha1.NewTypeMeta("ControlMessage"),
		Type:      v1alpha1.ControlMessageCommand,
		Timestamp: e.IssuedAt,
		Command: &v1alpha1.CommandPayload{
			CommandID: e.ID,
			Command:   e.Command,
			Params:    e.Params,
			IssuedAt:  e.IssuedAt,
		},
	}
}

func (c *connection) readPump(ctx context.Context, handle func(ctx context.Context, msg *v1alpha1.ControlMessage) *v1alpha1.ControlMessage) {
	defer func() {
		c.hub.unregister(c)
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("error closing websocket connection")
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var msg v1alpha1.ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(controlError(werrors.CodeInvalidInput, "malformed control message"))
			continue
		}

		mctx, cancel := context.WithTimeout(ctx, messageTimeout)
		resp := handle(mctx, &msg)
		cancel()
		if resp != nil {
			c.reply(resp)
		}
	}
}

func (c *connection) reply(msg *v1alpha1.ControlMessage) {
	if err := c.hub.Send(c.screenID, msg); err != nil {
		c.logger.Warn().Err(err).Str("type", string(msg.Type)).Msg("failed to queue reply")
	}
}

func (c *connection) write(mt int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(mt, payload)
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.logger.Warn().Err(err).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("failed to write ping")
				return
			}
		}
	}
}

func controlError(code, message string) *v1alpha1.ControlMessage {
	return &v1alpha1.ControlMessage{
		TypeMeta:  v1alpha1.NewTypeMeta("ControlMessage"),
		Type:      v1alpha1.ControlMessageError,
		Timestamp: time.Now().UTC(),
		Error:     &v1alpha1.ControlError{Code: code, Message: message},
	}
}

// ServeWs upgrades a device's control connection. The screen must exist;
// a command left pending from before the connection is pushed right away.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	const op = "ServeWs"
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

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("screenId", id.String()).Msg("websocket upgrade failed")
		return
	}

	c := &connection{
		screenID: id,
		ws:       ws,
		send:     make(chan []byte, 64),
		hub:      h.hub,
		logger:   log.With().Str("screenId", id.String()).Logger(),
	}
	if !h.hub.register(c) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}

	go c.writePump()
	h.pushPending(r.Context(), s, c)
	c.readPump(r.Context(), func(ctx context.Context, msg *v1alpha1.ControlMessage) *v1alpha1.ControlMessage {
		return h.handleControl(ctx, id, msg)
	})
}

func (h *Handler) pushPending(ctx context.Context, s *screen.Screen, c *connection) {
	pc := s.PendingCommand
	if pc == nil {
		return
	}
	entry, err := h.commands.Get(ctx, pc.LogEntryID)
	if err != nil {
		c.logger.Warn().Err(err).Str("commandId", pc.LogEntryID.String()).Msg("pending command not in log")
		entry = &command.Entry{ID: pc.LogEntryID, ScreenID: s.ID, Command: pc.Command, IssuedAt: pc.IssuedAt}
	}
	c.reply(commandMessage(entry))
}

// handleControl applies one inbound device message and returns the reply,
// if any
func (h *Handler) handleControl(ctx context.Context, id uuid.UUID, msg *v1alpha1.ControlMessage) *v1alpha1.ControlMessage {
	var err error
	switch msg.Type {
	case v1alpha1.ControlMessageHeartbeat:
		_, err = h.heartbeat(ctx, id)
	case v1alpha1.ControlMessageIssue:
		if msg.Issue == nil {
			return controlError(werrors.CodeInvalidInput, "issue payload is required")
		}
		_, err = h.reportIssue(ctx, id, *msg.Issue)
	case v1alpha1.ControlMessageAck:
		if msg.Ack == nil {
			return controlError(werrors.CodeInvalidInput, "ack payload is required")
		}
		_, err = h.acknowledge(ctx, id, *msg.Ack)
	default:
		return controlError(werrors.CodeInvalidInput, fmt.Sprintf("unsupported message type %q", msg.Type))
	}
	if err == nil {
		return nil
	}

	status, body := errorBody(err)
	ev := h.logger.Debug()
	if status >= http.StatusInternalServerError {
		ev = h.logger.Error()
	}
	ev.Err(err).Str("screenId", id.String()).Str("type", string(msg.Type)).Msg("device message rejected")
	return controlError(body.Code, body.Message)
}
