package events

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"playerstore/pkg/player"
)

// ChangeEvent describes one committed batch entry
type ChangeEvent struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Region      string           `json:"region"`
	Server      string           `json:"server"`
	Operation   player.Operation `json:"operation"`
	CommittedAt time.Time        `json:"committed_at"`
}

// FromEntries builds one event per entry, in batch order
func FromEntries(entries []player.Entry, committedAt time.Time) []ChangeEvent {
	events := make([]ChangeEvent, len(entries))
	for i, e := range entries {
		events[i] = ChangeEvent{
			ID:          e.ID,
			Name:        e.Name,
			Region:      e.Region,
			Server:      e.Server,
			Operation:   e.Operation,
			CommittedAt: committedAt,
		}
	}
	return events
}

// Publisher defines the interface for announcing committed changes
type Publisher interface {
	// Publish writes the events and returns once the broker acknowledged
	// them or the write failed.
	Publish(ctx context.Context, events []ChangeEvent) error

	// Close gracefully shuts down the publisher
	Close() error
}

// messageWriter is the part of kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements Publisher using kafka-go
type KafkaPublisher struct {
	writer messageWriter
}

// Config holds Kafka producer configuration
type Config struct {
	Brokers []string
	Topic   string
}

// NewKafkaPublisher creates a new KafkaPublisher instance.
// Messages are keyed by player id so every change to one player lands on
// the same partition, in commit order. Retries are left to the Queue.
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  1,
	}

	return &KafkaPublisher{writer: writer}
}

// Publish sends all events in one synchronous write
func (p *KafkaPublisher) Publish(ctx context.Context, events []ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs, err := Encode(events)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending writes and shuts down the producer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Encode converts events to Kafka messages keyed by player id
func Encode(events []ChangeEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(events))
	for i, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		msgs[i] = kafka.Message{
			Key:   []byte(strconv.FormatInt(ev.ID, 10)),
			Value: value,
		}
	}
	return msgs, nil
}
