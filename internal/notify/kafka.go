package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter allows the kafka-go writer to be swapped out in tests.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	Writer KafkaWriter
}

func NewKafka(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers required", ErrPublishFailed)
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
	}
	return &KafkaPublisher{Writer: writer}, nil
}

// Publish keys messages by postcode so lookups of one postcode stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event LookupEvent) error {
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPublishFailed, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Postcode),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: kafka: %w", ErrPublishFailed, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}
