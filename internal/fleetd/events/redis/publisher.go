// Package redis publishes fleet events over Redis pub/sub so other
// controller instances and integrations can follow fleet changes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/internal/fleetd/events"
)

// DefaultChannel is the pub/sub channel events are published on
const DefaultChannel = "fleet:events"

// message is the wire envelope; NodeID lets subscribers drop their own echoes
type message struct {
	NodeID string       `json:"nodeId"`
	Event  events.Event `json:"event"`
}

// Publisher implements events.Publisher on a Redis channel
type Publisher struct {
	client  redis.UniversalClient
	channel string
	nodeID  string
	logger  zerolog.Logger
}

// NewPublisher creates a Redis-backed event publisher
func NewPublisher(client redis.UniversalClient, channel, nodeID string, logger zerolog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		client:  client,
		channel: channel,
		nodeID:  nodeID,
		logger:  logger.With().Str("component", "redis-events").Logger(),
	}
}

// Publish encodes the event and publishes it on the channel
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(message{NodeID: p.nodeID, Event: event})
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		p.logger.Error().Err(err).
			Str("type", string(event.Type)).
			Str("channel", p.channel).
			Msg("failed to publish event")
		return fmt.Errorf("error publishing event: %w", err)
	}

	p.logger.Debug().
		Str("type", string(event.Type)).
		Int64("receivers", receivers).
		Msg("event published")
	return nil
}

// Decode unpacks a payload received on the channel. It returns ok=false
// for messages published by nodeID.
func Decode(payload []byte, nodeID string) (events.Event, bool, error) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return events.Event{}, false, fmt.Errorf("error decoding event: %w", err)
	}
	if msg.NodeID == nodeID {
		return events.Event{}, false, nil
	}
	return msg.Event, true, nil
}
