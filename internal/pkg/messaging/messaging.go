package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrTopicRequired is returned when Publish is called with an empty topic.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrClosed is returned when publishing on a closed publisher.
	ErrClosed = errors.New("messaging: publisher closed")
)

// Publisher sends messages to a named topic (subject, topic or Pub/Sub topic id).
type Publisher interface {
	io.Closer
	Publish(ctx context.Context, topic string, msg Message) (Receipt, error)
}

// Message is a broker-agnostic outgoing message.
type Message struct {
	// Key is used for partitioning by Kafka; other brokers ignore it.
	Key []byte
	// Body is the payload.
	Body []byte
	// Headers become message headers or attributes. NSQ drops them.
	Headers map[string]string
}

// Receipt describes what the broker reported back, if anything.
type Receipt struct {
	ID        string
	Topic     string
	Partition int
	Offset    int64
	At        time.Time
}

func checkPublish(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	return nil
}
