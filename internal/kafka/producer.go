package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/moodstory/internal/models"
)

// Producer wraps a Kafka producer
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
	}

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka producer initialized")

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishStoryCompleted publishes a finished story, keyed by its request ID.
func (p *Producer) PublishStoryCompleted(ctx context.Context, event *models.StoryCompletedEvent) error {
	msg, err := encodeStoryCompleted(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Info().
		Str("request_id", event.RequestID.String()).
		Int("assets", len(event.Assets)).
		Str("topic", p.topic).
		Msg("Story completed event published to Kafka")

	return nil
}

func encodeStoryCompleted(event *models.StoryCompletedEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal story event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.RequestID.String()),
		Value: data,
	}, nil
}

// Close closes the producer
func (p *Producer) Close() error {
	log.Info().Msg("Closing Kafka producer")
	return p.writer.Close()
}
