package events

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestFanoutDeliversToAll(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("down")}
	c := &recorder{}

	err := Fanout{a, b, c}.Publish(context.Background(), Event{Type: ScreenCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Len(t, c.got, 1)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	p := NewLogPublisher(logger)

	id := uuid.New()
	err := p.Publish(context.Background(), Event{
		Type:      ScreenHeartbeat,
		ScreenID:  id,
		Timestamp: time.Now(),
		Data:      map[string]string{"name": "lobby-1"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"type":"screen.heartbeat"`)
	assert.Contains(t, buf.String(), id.String())
	assert.Contains(t, buf.String(), `"name":"lobby-1"`)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Publish(context.Background(), Event{Type: ContentChanged}))
}
