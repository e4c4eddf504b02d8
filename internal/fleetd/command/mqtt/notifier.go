// Package mqtt delivers commands to devices over an MQTT broker and
// accepts their acknowledgements
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
)

const (
	// QoS is used for command and ack topics
	QoS byte = 1

	// DefaultTopicPrefix roots every fleet topic
	DefaultTopicPrefix = "fleet"

	defaultPublishTimeout = 2 * time.Second
)

// Options configures the broker connection
type Options struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	PublishTimeout time.Duration
}

// Connect creates a connected paho client
func Connect(opts Options, logger zerolog.Logger) (paho.Client, error) {
	log := logger.With().Str("component", "mqtt").Logger()

	co := paho.NewClientOptions()
	co.AddBroker(opts.BrokerURL)
	co.SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.OnConnect = func(paho.Client) {
		log.Info().Str("broker", opts.BrokerURL).Msg("connected to MQTT broker")
	}
	co.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := paho.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

// Publisher is the part of a paho client the notifier needs
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Notifier publishes issued commands to fleet/<screenID>/commands
type Notifier struct {
	client  Publisher
	prefix  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNotifier creates a command notifier
func NewNotifier(client Publisher, opts Options, logger zerolog.Logger) *Notifier {
	n := &Notifier{
		client:  client,
		prefix:  opts.TopicPrefix,
		timeout: opts.PublishTimeout,
		logger:  logger.With().Str("component", "mqtt-notifier").Logger(),
	}
	if n.prefix == "" {
		n.prefix = DefaultTopicPrefix
	}
	if n.timeout <= 0 {
		n.timeout = defaultPublishTimeout
	}
	return n
}

// CommandTopic returns the topic a screen subscribes to for commands
func CommandTopic(prefix string, screenID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/commands", prefix, screenID)
}

// Notify publishes the entry and waits at most the publish timeout for the
// broker to accept it
func (n *Notifier) Notify(ctx context.Context, e *command.Entry) error {
	payload, err := json.Marshal(v1alpha1.ControlMessage{
		TypeMeta:  v1alpha1.NewTypeMeta("ControlMessage"),
		Type:      v1alpha1.ControlMessageCommand,
		Timestamp: e.IssuedAt,
		Command: &v1alpha1.CommandPayload{
			CommandID: e.ID,
			Command:   e.Command,
			Params:    e.Params,
			IssuedAt:  e.IssuedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("error marshaling command: %w", err)
	}

	topic := CommandTopic(n.prefix, e.ScreenID)
	token := n.client.Publish(topic, QoS, false, payload)

	select {
	case <-token.Done():
	case <-time.After(n.timeout):
		return fmt.Errorf("publish to %s timed out", topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	n.logger.Debug().
		Str("topic", topic).
		Str("commandId", e.ID.String()).
		Msg("command published")
	return nil
}

// Acknowledger applies device acknowledgements
type Acknowledger interface {
	Acknowledge(ctx context.Context, ack command.Ack) (*command.Entry, error)
}

// AckListener consumes fleet/+/acks and forwards acknowledgements
type AckListener struct {
	acks   Acknowledger
	prefix string
	logger zerolog.Logger
}

// NewAckListener creates an acknowledgement consumer
func NewAckListener(acks Acknowledger, prefix string, logger zerolog.Logger) *AckListener {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &AckListener{
		acks:   acks,
		prefix: prefix,
		logger: logger.With().Str("component", "mqtt-acks").Logger(),
	}
}

// Subscribe registers the listener on client
func (l *AckListener) Subscribe(client paho.Client) error {
	topic := l.prefix + "/+/acks"
	token := client.Subscribe(topic, QoS, func(_ paho.Client, msg paho.Message) {
		if err := l.Handle(context.Background(), msg.Topic(), msg.Payload()); err != nil {
			l.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("rejected acknowledgement")
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	return nil
}

// Handle decodes one acknowledgement message. The screen ID comes from the
// topic so a device can only acknowledge its own commands.
func (l *AckListener) Handle(ctx context.Context, topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != l.prefix || parts[2] != "acks" {
		return fmt.Errorf("unexpected topic %q", topic)
	}
	screenID, err := uuid.Parse(parts[1])
	if err != nil {
		return fmt.Errorf("invalid screen id in topic %q: %w", topic, err)
	}

	var ack v1alpha1.AckPayload
	if err := json.Unmarshal(payload, &ack); err != nil {
		return fmt.Errorf("invalid ack payload: %w", err)
	}

	entry, err := l.acks.Acknowledge(ctx, command.Ack{
		EntryID:      ack.CommandID,
		ScreenID:     screenID,
		Success:      ack.Success,
		ErrorMessage: ack.ErrorMessage,
	})
	if err != nil {
		return err
	}

	l.logger.Debug().
		Str("commandId", entry.ID.String()).
		Str("status", string(entry.Status)).
		Msg("acknowledgement applied")
	return nil
}
