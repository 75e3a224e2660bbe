package kvstore

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// RegisterMetrics reports the counters of m through meter on every
// collection. The returned registration is dropped by Close.
func (m *Memory) RegisterMetrics(meter metric.Meter) error {
	entries, err := meter.Int64ObservableGauge("kvstore.memory.entries",
		metric.WithDescription("Live entries held in memory"))
	if err != nil {
		return err
	}
	hits, err := meter.Int64ObservableCounter("kvstore.memory.hits",
		metric.WithDescription("Reads that found a live entry"))
	if err != nil {
		return err
	}
	misses, err := meter.Int64ObservableCounter("kvstore.memory.misses",
		metric.WithDescription("Reads that found nothing"))
	if err != nil {
		return err
	}
	expired, err := meter.Int64ObservableCounter("kvstore.memory.expired",
		metric.WithDescription("Entries dropped after their TTL"))
	if err != nil {
		return err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := m.Stats()
		o.ObserveInt64(entries, int64(st.Entries))
		o.ObserveInt64(hits, st.Hits)
		o.ObserveInt64(misses, st.Misses)
		o.ObserveInt64(expired, st.Expired)
		return nil
	}, entries, hits, misses, expired)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.registrations = append(m.registrations, reg)
	m.mu.Unlock()
	return nil
}
