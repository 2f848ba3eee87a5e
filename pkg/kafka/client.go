package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"freight-service/pkg/logger"
)

// Well-known topic names.
const (
	TopicBidPlaced           = "bid.placed"
	TopicBookingCreated      = "booking.created"
	TopicBookingStatus       = "booking.status_changed"
	TopicTransactionRecorded = "transaction.recorded"
	TopicVerificationDecided = "verification.decided"
)

// Topics lists every topic the service produces.
var Topics = []string{
	TopicBidPlaced,
	TopicBookingCreated,
	TopicBookingStatus,
	TopicTransactionRecorded,
	TopicVerificationDecided,
}

const topicAttempts = 20

// Client wraps Kafka operations.
type Client struct {
	brokers []string
	writer  *kafkago.Writer
	log     logger.ILogger
}

// NewClient returns a Client for the given brokers. The writer is shared by
// all topics; each message names its own topic.
func NewClient(brokers []string, log logger.ILogger) *Client {
	return &Client{
		brokers: brokers,
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log,
	}
}

// EnsureTopics creates topics if they don't already exist (with retry).
func (c *Client) EnsureTopics(ctx context.Context, topics ...string) error {
	for attempt := 1; attempt <= topicAttempts; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			c.log.Warning("kafka not ready", logger.Int("attempt", attempt), logger.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		configs := make([]kafkago.TopicConfig, len(topics))
		for i, t := range topics {
			configs[i] = kafkago.TopicConfig{
				Topic:             t,
				NumPartitions:     3,
				ReplicationFactor: 1,
			}
		}

		err = conn.CreateTopics(configs...)
		conn.Close()
		if err != nil {
			c.log.Info("topic creation returned (may already exist)", logger.Error(err))
		}
		c.log.Info("kafka topics ensured", logger.Int("count", len(topics)))
		return nil
	}
	return fmt.Errorf("kafka: could not connect after %d attempts", topicAttempts)
}

// Publish sends a JSON-serialised message to a topic. The key keeps events
// of one aggregate on one partition.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
}

// Subscribe starts a background goroutine that reads from a topic.
func (c *Client) Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error) {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  c.brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	go func() {
		defer r.Close()
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Error("kafka read failed", logger.String("topic", topic), logger.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if err := handler(msg.Value); err != nil {
				c.log.Error("kafka handler failed", logger.String("topic", topic), logger.Error(err))
			}
		}
	}()
}

// Close flushes pending writes.
func (c *Client) Close() error { return c.writer.Close() }
