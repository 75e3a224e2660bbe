package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

// ErrNSQAddrRequired is returned when the nsqd address is missing.
var ErrNSQAddrRequired = errors.New("messaging: nsq address is required")

// NSQConfig configures the NSQ publisher.
type NSQConfig struct {
	// Addr is the nsqd TCP address.
	Addr string
	// Config overrides the default producer config.
	Config *nsq.Config
}

// NSQ publishes to nsqd topics. NSQ messages have no headers or keys, so
// only Message.Body is sent.
type NSQ struct {
	producer *nsq.Producer
	closed   atomic.Bool
}

// NewNSQ creates a producer. The connection is opened lazily on first publish.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.Addr == "" {
		return nil, ErrNSQAddrRequired
	}

	pcfg := cfg.Config
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.Addr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p}, nil
}

// Close stops the producer.
func (n *NSQ) Close() error {
	if n.closed.CompareAndSwap(false, true) {
		n.producer.Stop()
	}
	return nil
}

// Publish sends msg.Body to the topic. The go-nsq producer has no context
// support, so ctx is only checked before the call.
func (n *NSQ) Publish(ctx context.Context, topic string, msg Message) (Receipt, error) {
	if err := checkPublish(ctx, topic); err != nil {
		return Receipt{}, err
	}
	if n.closed.Load() {
		return Receipt{}, ErrClosed
	}

	if err := n.producer.Publish(topic, msg.Body); err != nil {
		return Receipt{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return Receipt{Topic: topic, At: time.Now()}, nil
}
