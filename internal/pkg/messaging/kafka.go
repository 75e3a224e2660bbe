package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	// Transport overrides the default kafka-go transport (TLS, SASL, timeouts).
	Transport kafka.RoundTripper
}

// Kafka publishes to Kafka topics through a single kafka-go writer.
type Kafka struct {
	writer *kafka.Writer

	mu     sync.RWMutex
	closed bool
}

// NewKafka creates a Kafka writer. No connection is made until the first publish.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			Transport:              cfg.Transport,
		},
	}, nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.writer.Close()
}

// Publish writes msg to the topic. Messages with the same key land on the
// same partition.
func (k *Kafka) Publish(ctx context.Context, topic string, msg Message) (Receipt, error) {
	if err := checkPublish(ctx, topic); err != nil {
		return Receipt{}, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return Receipt{}, ErrClosed
	}

	kmsg := kafka.Message{
		Topic: topic,
		Key:   msg.Key,
		Value: msg.Body,
		Time:  time.Now(),
	}
	for key, v := range msg.Headers {
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := k.writer.WriteMessages(ctx, kmsg); err != nil {
		return Receipt{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return Receipt{Topic: topic, At: kmsg.Time}, nil
}
