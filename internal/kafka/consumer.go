package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/moodstory/internal/models"
)

const (
	maxBackoffShift = 10
	baseDelay       = 1 * time.Second
	maxDelay        = 5 * time.Minute
	maxAttempts     = 50 // after this many attempts the message is skipped
)

// Consumer wraps a Kafka consumer
type Consumer struct {
	reader  *kafka.Reader
	handler StoryHandler
}

// StoryHandler processes story completed events. Errors wrapped with Permanent
// skip the message instead of retrying it.
type StoryHandler interface {
	HandleStoryCompleted(ctx context.Context, event *models.StoryCompletedEvent) error
}

// permanentError marks a handler failure that no retry can fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the consumer skips the message instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string, handler StoryHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // manual commits
		// Events published before the first consumer start are not lost.
		StartOffset: kafka.FirstOffset,
	})

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Str("group_id", groupID).
		Msg("Kafka consumer initialized")

	return &Consumer{
		reader:  reader,
		handler: handler,
	}
}

// Start consumes messages until ctx is cancelled. Each message is retried with
// exponential backoff and skipped after maxAttempts.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		event, err := decodeStoryCompleted(msg.Value)
		if err != nil {
			// Undecodable messages never succeed on retry.
			log.Error().
				Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Skipping malformed message")
			c.commit(ctx, msg)
			continue
		}

		if err := c.handleWithRetry(ctx, msg, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().
				Err(err).
				Str("request_id", event.RequestID.String()).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Bool("permanent", IsPermanent(err)).
				Msg("CRITICAL: Message processing failed - SKIPPING MESSAGE")
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message, event *models.StoryCompletedEvent) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = c.handler.HandleStoryCompleted(ctx, event)
		if lastErr == nil {
			log.Info().
				Str("request_id", event.RequestID.String()).
				Int("assets", len(event.Assets)).
				Msg("Message processed successfully")
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}

		log.Error().
			Err(lastErr).
			Str("topic", msg.Topic).
			Int64("offset", msg.Offset).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Msg("Failed to process message - will retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
	return lastErr
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		// Redelivery on restart is tolerated; handlers are idempotent.
		log.Error().Err(err).Msg("Failed to commit message")
	}
}

// retryDelay returns the exponential backoff before retry number attempt+1.
func retryDelay(attempt int) time.Duration {
	delay := baseDelay * time.Duration(1<<uint(min(attempt, maxBackoffShift)))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func decodeStoryCompleted(value []byte) (*models.StoryCompletedEvent, error) {
	var event models.StoryCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &event, nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	return c.reader.Close()
}
