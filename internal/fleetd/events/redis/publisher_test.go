package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/internal/fleetd/events"
)

func TestDecodeSkipsOwnMessages(t *testing.T) {
	ev := events.Event{Type: events.ScreenCreated, ScreenID: uuid.New(), Timestamp: time.Unix(100, 0).UTC()}
	payload, err := json.Marshal(message{NodeID: "node-a", Event: ev})
	require.NoError(t, err)

	_, ok, err := Decode(payload, "node-a")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := Decode(payload, "node-b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ev.Type, got.Type)
	assert.Equal(t, ev.ScreenID, got.ScreenID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("{"), "node")
	assert.Error(t, err)
}

func TestPublishRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	channel := "fleet:test:" + uuid.NewString()
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewPublisher(client, channel, "node-a", zerolog.Nop())
	require.NoError(t, pub.Publish(ctx, events.Event{Type: events.CommandIssued}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	got, ok, err := Decode([]byte(msg.Payload), "node-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, events.CommandIssued, got.Type)
}
