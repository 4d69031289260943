package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stellar-micro-donation/config"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher on a Kafka topic.
type Publisher struct {
	writer messageWriter
	topic  string
	log    zerolog.Logger
}

// NewPublisher creates a publisher writing JSON events to cfg.Topic.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: cfg.Topic,
		log:   log,
	}
}

// Publish encodes event as JSON and writes it keyed by key. Messages with the
// same key land on the same partition.
func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("writing to %s: %w", p.topic, err)
	}

	p.log.Debug().Str("topic", p.topic).Str("key", key).Msg("Event published")
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
