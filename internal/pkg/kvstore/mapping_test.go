package kvstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
)

func newMiniRedisMapping(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	m, err := NewRedis(RedisConfig{
		Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Prefix: "test:",
	})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	return m, mr
}

// mappings returns every implementation under test.
func mappings(t *testing.T) map[string]Mapping {
	t.Helper()

	rm, _ := newMiniRedisMapping(t)
	return map[string]Mapping{
		"Memory": NewMemory(MemoryConfig{}),
		"Redis":  rm,
	}
}

func TestMappingContract(t *testing.T) {
	ctx := context.Background()

	for name, m := range mappings(t) {
		t.Run(name, func(t *testing.T) {

			t.Run("GetMissing", func(t *testing.T) {
				if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
			})

			t.Run("PutGetRemove", func(t *testing.T) {

				// Arrange
				if err := m.Put(ctx, "k1", []byte("v1"), time.Minute); err != nil {
					t.Fatalf("Put: %v", err)
				}

				// Act
				got, err := m.Get(ctx, "k1")

				// Assert
				if err != nil || string(got) != "v1" {
					t.Fatalf("Get = %q, %v", got, err)
				}
				if err := m.Remove(ctx, "k1"); err != nil {
					t.Fatalf("Remove: %v", err)
				}
				if err := m.Remove(ctx, "k1"); err != nil {
					t.Fatalf("second Remove should be a no-op, got %v", err)
				}
				if _, err := m.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound after remove, got %v", err)
				}
			})

			t.Run("CompareAndRemove", func(t *testing.T) {

				// Arrange
				_ = m.Put(ctx, "k2", []byte("v2"), 0)

				// Act
				mismatch, errMismatch := m.CompareAndRemove(ctx, "k2", []byte("other"))
				removed, errRemoved := m.CompareAndRemove(ctx, "k2", []byte("v2"))
				_, errGone := m.CompareAndRemove(ctx, "k2", []byte("v2"))

				// Assert
				if mismatch || errMismatch != nil {
					t.Fatalf("mismatch = %v, %v", mismatch, errMismatch)
				}
				if !removed || errRemoved != nil {
					t.Fatalf("removed = %v, %v", removed, errRemoved)
				}
				if !errors.Is(errGone, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", errGone)
				}
			})

			t.Run("CompareAndSwap", func(t *testing.T) {

				// Arrange
				_ = m.Put(ctx, "k3", []byte("a"), time.Minute)

				// Act
				stale, errStale := m.CompareAndSwap(ctx, "k3", []byte("x"), []byte("b"), time.Minute)
				swapped, errSwapped := m.CompareAndSwap(ctx, "k3", []byte("a"), []byte("b"), time.Minute)
				_, errMissing := m.CompareAndSwap(ctx, "nope", []byte("a"), []byte("b"), time.Minute)

				// Assert
				if stale || errStale != nil {
					t.Fatalf("stale = %v, %v", stale, errStale)
				}
				if !swapped || errSwapped != nil {
					t.Fatalf("swapped = %v, %v", swapped, errSwapped)
				}
				if got, _ := m.Get(ctx, "k3"); string(got) != "b" {
					t.Fatalf("expected b after swap, got %q", got)
				}
				if !errors.Is(errMissing, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", errMissing)
				}
			})

			t.Run("OnlyOneConcurrentRemoveWins", func(t *testing.T) {

				// Arrange
				_ = m.Put(ctx, "race", []byte("payload"), time.Minute)
				var (
					wg   sync.WaitGroup
					mu   sync.Mutex
					wins int
				)

				// Act
				for range 16 {
					wg.Go(func() {
						ok, _ := m.CompareAndRemove(ctx, "race", []byte("payload"))
						if ok {
							mu.Lock()
							wins++
							mu.Unlock()
						}
					})
				}
				wg.Wait()

				// Assert
				if wins != 1 {
					t.Fatalf("expected exactly one winner, got %d", wins)
				}
			})
		})
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("Expiry", func(t *testing.T) {

		// Arrange
		clk := &clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		m := NewMemory(MemoryConfig{Clock: clk})
		_ = m.Put(ctx, "k", []byte("v"), time.Minute)

		// Act
		clk.Advance(time.Minute)
		_, err := m.Get(ctx, "k")

		// Assert
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected expired entry to be gone, got %v", err)
		}
		if st := m.Stats(); st.Expired != 1 || st.Misses != 1 {
			t.Fatalf("unexpected stats %+v", st)
		}
	})

	t.Run("CapacityReclaimsExpired", func(t *testing.T) {

		// Arrange
		clk := &clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		m := NewMemory(MemoryConfig{Capacity: 2, Clock: clk})
		_ = m.Put(ctx, "a", []byte("1"), time.Second)
		_ = m.Put(ctx, "b", []byte("2"), time.Hour)

		// Act
		errFull := m.Put(ctx, "c", []byte("3"), time.Hour)
		errReplace := m.Put(ctx, "b", []byte("22"), time.Hour)
		clk.Advance(2 * time.Second)
		errAfterExpiry := m.Put(ctx, "c", []byte("3"), time.Hour)

		// Assert
		if !errors.Is(errFull, ErrCapacity) {
			t.Fatalf("expected ErrCapacity, got %v", errFull)
		}
		if errReplace != nil {
			t.Fatalf("replacing an existing key must not hit capacity: %v", errReplace)
		}
		if errAfterExpiry != nil {
			t.Fatalf("expected expired slot to be reclaimed, got %v", errAfterExpiry)
		}
	})

	t.Run("SweepAndRun", func(t *testing.T) {

		// Arrange
		clk := &clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		m := NewMemory(MemoryConfig{Clock: clk})
		_ = m.Put(ctx, "short", []byte("1"), time.Second)
		_ = m.Put(ctx, "forever", []byte("2"), 0)
		clk.Advance(time.Hour)

		// Act
		n := m.Sweep()

		// Assert
		if n != 1 || m.Stats().Entries != 1 {
			t.Fatalf("expected one swept and one left, got swept=%d stats=%+v", n, m.Stats())
		}

		runCtx, cancel := context.WithCancel(ctx)
		cancel()
		if err := m.Run(runCtx, time.Millisecond); err != nil {
			t.Fatalf("Run: %v", err)
		}
	})

	t.Run("ValuesAreCopied", func(t *testing.T) {

		// Arrange
		m := NewMemory(MemoryConfig{})
		val := []byte("abc")
		_ = m.Put(ctx, "k", val, 0)

		// Act
		val[0] = 'X'
		got, _ := m.Get(ctx, "k")
		got[1] = 'Y'
		again, _ := m.Get(ctx, "k")

		// Assert
		if string(again) != "abc" {
			t.Fatalf("stored value was aliased: %q", again)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		m := NewMemory(MemoryConfig{})
		_ = m.Close()
		if err := m.Put(ctx, "k", nil, 0); !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})
}

func TestRedisExpiry(t *testing.T) {

	// Arrange
	ctx := context.Background()
	m, mr := newMiniRedisMapping(t)
	_ = m.Put(ctx, "k", []byte("v"), time.Minute)
	_ = m.Put(ctx, "keep", []byte("v"), time.Minute)
	if ok, err := m.CompareAndSwap(ctx, "keep", []byte("v"), []byte("w"), time.Hour); !ok || err != nil {
		t.Fatalf("CompareAndSwap = %v, %v", ok, err)
	}

	// Act
	mr.FastForward(2 * time.Minute)

	// Assert
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if got, err := m.Get(ctx, "keep"); err != nil || string(got) != "w" {
		t.Fatalf("swap should reset ttl, got %q, %v", got, err)
	}
	if !mr.Exists("test:keep") {
		t.Fatalf("expected prefixed key in redis")
	}
}

func TestNewFromDriver(t *testing.T) {
	if m, err := NewFromDriver("", FactoryOptions{}); err != nil || m == nil {
		t.Fatalf("expected memory default, got %v, %v", m, err)
	}
	if _, err := NewFromDriver("redis", FactoryOptions{}); !errors.Is(err, ErrRedisClientRequired) {
		t.Fatalf("expected ErrRedisClientRequired, got %v", err)
	}
	if _, err := NewFromDriver("etcd", FactoryOptions{}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}
