// Package mqttclient subscribes to plant telemetry on an external MQTT broker.
package mqttclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Topic kinds under <prefix>/<plantID>/.
const (
	KindReadings = "readings"
	KindCare     = "care"
)

// Message is a received publish packet with the plant and kind taken from
// its topic.
type Message struct {
	Topic   string
	PlantID string
	Kind    string
	Payload []byte
}

// Handler is invoked for each received message.
type Handler func(context.Context, Message)

// Options configures the subscriber.
type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
}

// Subscriber owns a paho client and routes plant topics to a Handler.
type Subscriber struct {
	opts    Options
	logger  *slog.Logger
	handler Handler
	client  mqtt.Client
}

// New constructs a subscriber. Start must be called to connect.
func New(opts Options, handler Handler, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	opts.TopicPrefix = strings.Trim(opts.TopicPrefix, "/")
	return &Subscriber{opts: opts, handler: handler, logger: logger}
}

// Filters returns the subscription filters for the configured prefix.
func (s *Subscriber) Filters() []string {
	return []string{
		fmt.Sprintf("%s/+/%s", s.opts.TopicPrefix, KindReadings),
		fmt.Sprintf("%s/+/%s", s.opts.TopicPrefix, KindCare),
	}
}

// Start connects and subscribes. Subscriptions are renewed on every
// reconnect. Messages are handled with ctx until Stop is called.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.opts.BrokerURL == "" {
		return errors.New("mqtt broker url is required")
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(s.opts.BrokerURL).
		SetClientID(s.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false)

	clientOpts.SetOnConnectHandler(func(c mqtt.Client) {
		filters := make(map[string]byte)
		for _, f := range s.Filters() {
			filters[f] = 1
		}
		token := c.SubscribeMultiple(filters, func(_ mqtt.Client, m mqtt.Message) {
			s.dispatch(ctx, m.Topic(), m.Payload())
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			s.logger.Error("mqtt subscribe failed", "error", token.Error())
			return
		}
		s.logger.Info("mqtt subscribed", "filters", s.Filters())
	})
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(clientOpts)
	token := s.client.Connect()
	// With connect retry enabled the token only completes once connected, so
	// a timeout leaves the client retrying in the background.
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}

	s.logger.Info("mqtt client started", "broker", s.opts.BrokerURL, "client_id", s.opts.ClientID)
	return nil
}

// Stop disconnects, allowing in-flight work 250ms to finish.
func (s *Subscriber) Stop() {
	if s.client == nil {
		return
	}
	s.client.Disconnect(250)
	s.logger.Info("mqtt client stopped")
}

// Connected reports whether the client currently holds a broker connection.
func (s *Subscriber) Connected() bool {
	return s.client != nil && s.client.IsConnectionOpen()
}

func (s *Subscriber) dispatch(ctx context.Context, topic string, payload []byte) {
	plantID, kind, ok := ParseTopic(s.opts.TopicPrefix, topic)
	if !ok {
		s.logger.Debug("mqtt topic ignored", "topic", topic)
		return
	}
	s.handler(ctx, Message{Topic: topic, PlantID: plantID, Kind: kind, Payload: payload})
}

// ParseTopic splits <prefix>/<plantID>/<kind>. It reports false for other
// shapes and for unknown kinds.
func ParseTopic(prefix, topic string) (plantID, kind string, ok bool) {
	prefix = strings.Trim(prefix, "/")
	rest := strings.TrimPrefix(topic, prefix+"/")
	if prefix == "" {
		rest = topic
	} else if rest == topic {
		return "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	switch parts[1] {
	case KindReadings, KindCare:
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}
