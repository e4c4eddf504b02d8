package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
)

func dial(t *testing.T, srv *httptest.Server, id uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + api + "/devices/" + id.String() + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readControl(t *testing.T, conn *websocket.Conn) v1alpha1.ControlMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg v1alpha1.ControlMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebsocketCommandRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	s := env.createScreen(t, "drive-thru-1")
	conn := dial(t, srv, s.ID)
	require.Eventually(t, func() bool { return env.hub.Connected(s.ID) }, 2*time.Second, 10*time.Millisecond)

	rec := env.do(t, http.MethodPost, api+"/commands", v1alpha1.CommandIssueRequest{
		ScreenID: s.ID,
		Command:  command.ClearCache,
		Params:   map[string]string{"scope": "media"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	issued := decode[v1alpha1.Command](t, rec)

	msg := readControl(t, conn)
	assert.Equal(t, v1alpha1.ControlMessageCommand, msg.Type)
	require.NotNil(t, msg.Command)
	assert.Equal(t, issued.ID, msg.Command.CommandID)
	assert.Equal(t, "media", msg.Command.Params["scope"])

	require.NoError(t, conn.WriteJSON(v1alpha1.ControlMessage{
		Type: v1alpha1.ControlMessageAck,
		Ack:  &v1alpha1.AckPayload{CommandID: issued.ID, Success: false, ErrorMessage: "disk full"},
	}))

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, api+"/commands/"+issued.ID.String(), nil)
		return decode[v1alpha1.Command](t, rec).Status == "failed"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWebsocketPushesPendingOnConnect(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	s := env.createScreen(t, "counter-1")
	rec := env.do(t, http.MethodPost, api+"/commands", v1alpha1.CommandIssueRequest{ScreenID: s.ID, Command: command.Reboot})
	require.Equal(t, http.StatusCreated, rec.Code)
	issued := decode[v1alpha1.Command](t, rec)

	conn := dial(t, srv, s.ID)
	msg := readControl(t, conn)
	assert.Equal(t, v1alpha1.ControlMessageCommand, msg.Type)
	require.NotNil(t, msg.Command)
	assert.Equal(t, issued.ID, msg.Command.CommandID)
	assert.Equal(t, command.Reboot, msg.Command.Command)
}

func TestWebsocketDeviceMessages(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	s := env.createScreen(t, "patio-1")
	conn := dial(t, srv, s.ID)

	require.NoError(t, conn.WriteJSON(v1alpha1.ControlMessage{Type: v1alpha1.ControlMessageHeartbeat}))
	require.NoError(t, conn.WriteJSON(v1alpha1.ControlMessage{
		Type:  v1alpha1.ControlMessageIssue,
		Issue: &v1alpha1.IssueReport{Kind: "warning", Message: "panel running hot"},
	}))

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, api+"/screens/"+s.ID.String(), nil)
		return decode[v1alpha1.Screen](t, rec).Status.Health == v1alpha1.HealthWarning
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, conn.WriteJSON(v1alpha1.ControlMessage{Type: "STATUS"}))
	msg := readControl(t, conn)
	assert.Equal(t, v1alpha1.ControlMessageError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "INVALID_INPUT", msg.Error.Code)

	require.NoError(t, conn.WriteJSON(v1alpha1.ControlMessage{
		Type: v1alpha1.ControlMessageAck,
		Ack:  &v1alpha1.AckPayload{CommandID: uuid.New(), Success: true},
	}))
	msg = readControl(t, conn)
	assert.Equal(t, v1alpha1.ControlMessageError, msg.Type)
	assert.Equal(t, "NOT_FOUND", msg.Error.Code)
}

func TestWebsocketUnknownScreen(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + api + "/devices/" + uuid.NewString() + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHubReplacesStaleConnection(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	s := env.createScreen(t, "host-stand")
	first := dial(t, srv, s.ID)
	require.Eventually(t, func() bool { return env.hub.Connected(s.ID) }, 2*time.Second, 10*time.Millisecond)

	dial(t, srv, s.ID)
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 1, env.hub.Count())
}
