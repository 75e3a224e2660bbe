package kvstore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

// MemoryConfig configures the in-process mapping.
type MemoryConfig struct {
	// Capacity bounds the number of live entries. Zero means unbounded.
	Capacity int
	// Clock drives expiry. Defaults to the system clock.
	Clock clock.Clocker
}

type memEntry struct {
	val       []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is a Mapping held in process memory behind a single mutex. The lock
// covers one map operation at a time and is never held while callers do I/O.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	closed  bool

	capacity int
	clock    clock.Clocker

	hits    *atomic.Int64
	misses  *atomic.Int64
	expired *atomic.Int64

	registrations []metric.Registration
}

// MemoryStats is a point-in-time snapshot of a Memory mapping.
type MemoryStats struct {
	Entries int
	Hits    int64
	Misses  int64
	Expired int64
}

// NewMemory returns an empty in-memory mapping.
func NewMemory(cfg MemoryConfig) *Memory {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Memory{
		entries:  make(map[string]memEntry),
		capacity: max(cfg.Capacity, 0),
		clock:    clk,
		hits:     atomic.NewInt64(0),
		misses:   atomic.NewInt64(0),
		expired:  atomic.NewInt64(0),
	}
}

// lookup returns the live entry for key, dropping it when expired. Callers
// hold m.mu.
func (m *Memory) lookup(key string, now time.Time) (memEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if e.expired(now) {
		delete(m.entries, key)
		m.expired.Inc()
		return memEntry{}, false
	}
	return e, true
}

func (m *Memory) entry(val []byte, ttl time.Duration, now time.Time) memEntry {
	e := memEntry{val: bytes.Clone(val)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	return e
}

// Get implements Mapping.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	e, ok := m.lookup(key, m.clock.Now())
	if !ok {
		m.misses.Inc()
		return nil, ErrNotFound
	}

	m.hits.Inc()
	return bytes.Clone(e.val), nil
}

// Put implements Mapping. A new key is refused with ErrCapacity when the
// mapping is full even after dropping expired entries.
func (m *Memory) Put(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	now := m.clock.Now()
	if _, exists := m.lookup(key, now); !exists && m.capacity > 0 && len(m.entries) >= m.capacity {
		m.sweepLocked(now)
		if len(m.entries) >= m.capacity {
			return ErrCapacity
		}
	}

	m.entries[key] = m.entry(val, ttl, now)
	return nil
}

// Remove implements Mapping.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.entries, key)
	return nil
}

// CompareAndRemove implements Mapping.
func (m *Memory) CompareAndRemove(_ context.Context, key string, expected []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	e, ok := m.lookup(key, m.clock.Now())
	if !ok {
		return false, ErrNotFound
	}
	if !bytes.Equal(e.val, expected) {
		return false, nil
	}

	delete(m.entries, key)
	return true, nil
}

// CompareAndSwap implements Mapping.
func (m *Memory) CompareAndSwap(_ context.Context, key string, expected, val []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	now := m.clock.Now()
	e, ok := m.lookup(key, now)
	if !ok {
		return false, ErrNotFound
	}
	if !bytes.Equal(e.val, expected) {
		return false, nil
	}

	m.entries[key] = m.entry(val, ttl, now)
	return true, nil
}

// Sweep drops every expired entry and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sweepLocked(m.clock.Now())
}

func (m *Memory) sweepLocked(now time.Time) int {
	n := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			n++
		}
	}
	m.expired.Add(int64(n))
	return n
}

// Run sweeps on every interval tick until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				st := m.Stats()
				slog.DebugContext(ctx, "expired entries swept", "count", n, "live", st.Entries,
					"hits", st.Hits, "misses", st.Misses)
			}
		}
	}
}

// Stats returns current counters.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	entries := len(m.entries)
	m.mu.Unlock()

	return MemoryStats{
		Entries: entries,
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		Expired: m.expired.Load(),
	}
}

// Close drops all entries and metric callbacks. Later calls return
// ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	regs := m.registrations
	m.registrations = nil
	m.closed = true
	clear(m.entries)
	m.mu.Unlock()

	// Unregistering waits for a running collection, whose callback takes m.mu.
	var errs []error
	for _, reg := range regs {
		if err := reg.Unregister(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
