package marketdata

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers encoded market-data events downstream.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// KafkaPublisher writes events to one topic, acknowledged by all
// replicas before the write returns.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops everything; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, []byte, []byte) error { return nil }

func (NopPublisher) Close() error { return nil }
