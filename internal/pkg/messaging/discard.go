package messaging

import (
	"context"
	"sync/atomic"
	"time"
)

// Discard is a Publisher that accepts and drops every message.
type Discard struct {
	published atomic.Int64
	closed    atomic.Bool
}

// NewDiscard returns a Publisher that keeps nothing.
func NewDiscard() *Discard {
	return &Discard{}
}

// Publish counts msg and drops it.
func (d *Discard) Publish(ctx context.Context, topic string, _ Message) (Receipt, error) {
	if err := checkPublish(ctx, topic); err != nil {
		return Receipt{}, err
	}
	if d.closed.Load() {
		return Receipt{}, ErrClosed
	}

	d.published.Add(1)
	return Receipt{Topic: topic, At: time.Now()}, nil
}

// Published reports how many messages were dropped so far.
func (d *Discard) Published() int64 {
	return d.published.Load()
}

// Close marks the publisher closed.
func (d *Discard) Close() error {
	d.closed.Store(true)
	return nil
}
