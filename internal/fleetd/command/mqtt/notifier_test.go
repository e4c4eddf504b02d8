package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
)

var _ command.Notifier = (*Notifier)(nil)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(complete bool, err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error { return t.err }

type recordingClient struct {
	topic   string
	qos     byte
	payload []byte
	token   paho.Token
}

func (c *recordingClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	c.topic = topic
	c.qos = qos
	c.payload = payload.([]byte)
	return c.token
}

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) Acknowledge(ctx context.Context, ack command.Ack) (*command.Entry, error) {
	args := m.Called(ctx, ack)
	if e := args.Get(0); e != nil {
		return e.(*command.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestNotifyPublishesCommand(t *testing.T) {
	client := &recordingClient{token: newToken(true, nil)}
	n := NewNotifier(client, Options{}, zerolog.Nop())

	issued := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	e := command.NewEntry(uuid.New(), "r1", "menu-1", command.RefreshContent, map[string]string{"force": "true"}, "ops", issued)

	require.NoError(t, n.Notify(context.Background(), e))
	assert.Equal(t, "fleet/"+e.ScreenID.String()+"/commands", client.topic)
	assert.Equal(t, QoS, client.qos)

	var msg v1alpha1.ControlMessage
	require.NoError(t, json.Unmarshal(client.payload, &msg))
	assert.Equal(t, v1alpha1.ControlMessageCommand, msg.Type)
	require.NotNil(t, msg.Command)
	assert.Equal(t, e.ID, msg.Command.CommandID)
	assert.Equal(t, "true", msg.Command.Params["force"])
}

func TestNotifyReportsBrokerFailure(t *testing.T) {
	client := &recordingClient{token: newToken(true, errors.New("not connected"))}
	n := NewNotifier(client, Options{TopicPrefix: "site1"}, zerolog.Nop())

	e := command.NewEntry(uuid.New(), "r1", "menu-1", command.Reboot, nil, "ops", time.Now())
	err := n.Notify(context.Background(), e)
	assert.ErrorContains(t, err, "not connected")
	assert.Equal(t, "site1/"+e.ScreenID.String()+"/commands", client.topic)
}

func TestNotifyDoesNotBlockPastTimeout(t *testing.T) {
	client := &recordingClient{token: newToken(false, nil)}
	n := NewNotifier(client, Options{PublishTimeout: 10 * time.Millisecond}, zerolog.Nop())

	e := command.NewEntry(uuid.New(), "r1", "menu-1", command.Reboot, nil, "ops", time.Now())
	assert.ErrorContains(t, n.Notify(context.Background(), e), "timed out")
}

func TestAckListenerHandle(t *testing.T) {
	acks := &mockAcknowledger{}
	l := NewAckListener(acks, "", zerolog.Nop())
	ctx := context.Background()

	screenID := uuid.New()
	entryID := uuid.New()
	done := &command.Entry{ID: entryID, ScreenID: screenID, Status: command.StatusFailed}

	acks.On("Acknowledge", ctx, command.Ack{
		EntryID:      entryID,
		ScreenID:     screenID,
		Success:      false,
		ErrorMessage: "disk full",
	}).Return(done, nil).Once()

	payload, err := json.Marshal(v1alpha1.AckPayload{CommandID: entryID, ErrorMessage: "disk full"})
	require.NoError(t, err)

	require.NoError(t, l.Handle(ctx, "fleet/"+screenID.String()+"/acks", payload))
	acks.AssertExpectations(t)
}

func TestAckListenerRejectsMalformedMessages(t *testing.T) {
	l := NewAckListener(&mockAcknowledger{}, "", zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"wrong prefix", "other/" + uuid.NewString() + "/acks", `{}`},
		{"wrong suffix", "fleet/" + uuid.NewString() + "/commands", `{}`},
		{"bad screen id", "fleet/not-a-uuid/acks", `{}`},
		{"bad payload", "fleet/" + uuid.NewString() + "/acks", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, l.Handle(ctx, tt.topic, []byte(tt.payload)))
		})
	}
}
