package recipient

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/kvstore"
)

func newTestStore(t *testing.T, cfg kvstore.MemoryConfig) (*Store, *kvstore.Memory) {
	t.Helper()

	m := kvstore.NewMemory(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return New(m, time.Hour, instrument.NewNoop()), m
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateLoad", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})
		want := []string{"ada@x.com", "bob@y.com"}

		// Act
		if err := s.Create(ctx, "tok", want); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got, err := s.Load(ctx, "tok")

		// Assert
		if err != nil || !slices.Equal(got, want) {
			t.Fatalf("Load() = %v, %v", got, err)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})

		// Act
		_, err := s.Load(ctx, "nope")

		// Assert
		if !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Full", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{Capacity: 1})
		_ = s.Create(ctx, "a", []string{"a@x.com"})

		// Act
		err := s.Create(ctx, "b", []string{"b@x.com"})

		// Assert
		if !errors.Is(err, entity.ErrStoreFull) {
			t.Fatalf("Create() error = %v, want ErrStoreFull", err)
		}
	})

	t.Run("RemoveSome", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})
		_ = s.Create(ctx, "tok", []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"})

		// Act
		got, err := s.Remove(ctx, "tok", []string{"c@x.com", "a@x.com", "zzz@x.com"})

		// Assert
		want := []string{"b@x.com", "d@x.com"}
		if err != nil || !slices.Equal(got, want) {
			t.Fatalf("Remove() = %v, %v, want %v", got, err, want)
		}
		if stored, _ := s.Load(ctx, "tok"); !slices.Equal(stored, want) {
			t.Fatalf("stored = %v, want %v", stored, want)
		}
	})

	t.Run("RemoveIsExactMatch", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})
		_ = s.Create(ctx, "tok", []string{"Ada@x.com"})

		// Act
		got, err := s.Remove(ctx, "tok", []string{"ada@x.com"})

		// Assert
		if err != nil || !slices.Equal(got, []string{"Ada@x.com"}) {
			t.Fatalf("Remove() = %v, %v", got, err)
		}
	})

	t.Run("RemoveAllDeletes", func(t *testing.T) {

		// Arrange
		s, m := newTestStore(t, kvstore.MemoryConfig{})
		_ = s.Create(ctx, "tok", []string{"a@x.com", "b@x.com"})

		// Act
		got, err := s.Remove(ctx, "tok", []string{"a@x.com", "b@x.com"})

		// Assert
		if err != nil || len(got) != 0 {
			t.Fatalf("Remove() = %v, %v", got, err)
		}
		if n := m.Stats().Entries; n != 0 {
			t.Fatalf("entries = %d, want 0", n)
		}
	})

	t.Run("TakeTwice", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})
		_ = s.Create(ctx, "tok", []string{"a@x.com"})

		// Act
		first, err1 := s.Take(ctx, "tok")
		_, err2 := s.Take(ctx, "tok")

		// Assert
		if err1 != nil || !slices.Equal(first, []string{"a@x.com"}) {
			t.Fatalf("first Take() = %v, %v", first, err1)
		}
		if !errors.Is(err2, goerror.ErrNotFound) {
			t.Fatalf("second Take() error = %v, want ErrNotFound", err2)
		}
	})

	t.Run("ConcurrentTakeOnlyOneWins", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})
		_ = s.Create(ctx, "tok", []string{"a@x.com", "b@x.com"})

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)

		// Act
		for range 16 {
			wg.Go(func() {
				if _, err := s.Take(ctx, "tok"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			})
		}
		wg.Wait()

		// Assert
		if wins != 1 {
			t.Fatalf("wins = %d, want 1", wins)
		}
	})

	t.Run("ConcurrentPruneAndTake", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})
		addrs := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}
		_ = s.Create(ctx, "tok", addrs)

		var (
			wg    sync.WaitGroup
			taken []string
		)

		// Act
		for _, a := range addrs[:3] {
			wg.Go(func() { _, _ = s.Remove(ctx, "tok", []string{a}) })
		}
		wg.Go(func() { taken, _ = s.Take(ctx, "tok") })
		wg.Wait()

		// Assert: the sender saw a whole intermediate set, never a torn one.
		for _, a := range taken {
			if !slices.Contains(addrs, a) {
				t.Fatalf("taken set has unknown address %q", a)
			}
		}
		if len(taken) > 0 && taken[len(taken)-1] != "d@x.com" {
			t.Fatalf("taken = %v, want d@x.com kept last", taken)
		}
		if _, err := s.Load(ctx, "tok"); err == nil && taken != nil {
			t.Fatalf("set still stored after Take")
		}
	})

	t.Run("Expires", func(t *testing.T) {

		// Arrange
		clk := &clock.Fixed{At: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
		s, _ := newTestStore(t, kvstore.MemoryConfig{Clock: clk})
		_ = s.Create(ctx, "tok", []string{"a@x.com"})
		clk.Advance(2 * time.Hour)

		// Act
		_, err := s.Take(ctx, "tok")

		// Assert
		if !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("Take() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DiscardMissingIsFine", func(t *testing.T) {

		// Arrange
		s, _ := newTestStore(t, kvstore.MemoryConfig{})

		// Act
		err := s.Discard(ctx, "nope")

		// Assert
		if err != nil {
			t.Fatalf("Discard() error = %v", err)
		}
	})
}
