// Package events publishes plant status transitions to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"basilcare/plant-hub/internal/ecology"
	"basilcare/plant-hub/internal/model"
)

// StatusChange records a plant moving from one status to another.
type StatusChange struct {
	PlantID string               `json:"plantId"`
	From    ecology.PlantStatus  `json:"from,omitempty"`
	To      ecology.PlantStatus  `json:"to"`
	Reading *model.SensorReading `json:"reading,omitempty"`
	At      time.Time            `json:"at"`
}

// Publisher delivers status changes.
type Publisher interface {
	PublishStatusChange(ctx context.Context, change StatusChange) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishStatusChange(context.Context, StatusChange) error { return nil }
func (Nop) Close() error                                            { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes status changes as JSON, keyed by plant ID.
type KafkaPublisher struct {
	w   messageWriter
	log *slog.Logger
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, log)
}

func newKafkaPublisher(w messageWriter, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaPublisher{w: w, log: log.With(slog.String("component", "status-events"))}
}

// PublishStatusChange encodes and writes change.
func (p *KafkaPublisher) PublishStatusChange(ctx context.Context, change StatusChange) error {
	value, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode status change: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(change.PlantID),
		Value: value,
		Time:  change.At,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write status change: %w", err)
	}

	p.log.Debug("status change published", "plant", change.PlantID, "from", change.From, "to", change.To)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
