package goroutine

import (
	"context"
	"errors"
	"testing"
)

func TestManager(t *testing.T) {

	t.Run("CollectsErrors", func(t *testing.T) {

		// Arrange
		m := NewManager(4)
		errBoom := errors.New("boom")

		// Act
		_ = m.Go(context.Background(), "ok", func(context.Context) error { return nil })
		_ = m.Go(context.Background(), "fail", func(context.Context) error { return errBoom })
		err := m.Wait()

		// Assert
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected boom error, got %v", err)
		}
	})

	t.Run("RecoversPanic", func(t *testing.T) {

		// Arrange
		m := NewManager(1)

		// Act
		_ = m.Go(context.Background(), "panic", func(context.Context) error { panic("bad") })
		err := m.Wait()

		// Assert
		if err == nil {
			t.Fatalf("expected panic to be reported as error")
		}
	})

	t.Run("LimitReached", func(t *testing.T) {

		// Arrange
		m := NewManager(1)
		release := make(chan struct{})
		started := make(chan struct{})
		_ = m.Go(context.Background(), "blocker", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
		<-started

		// Act
		err := m.Go(context.Background(), "second", func(context.Context) error { return nil })

		// Assert
		close(release)
		if !errors.Is(err, ErrLimitReached) {
			t.Fatalf("expected ErrLimitReached, got %v", err)
		}
		if err := m.Wait(); err != nil {
			t.Fatalf("unexpected wait error: %v", err)
		}
	})

	t.Run("ClosedAfterWait", func(t *testing.T) {

		// Arrange
		m := NewManager(1)
		_ = m.Wait()

		// Act
		err := m.Go(context.Background(), "late", func(context.Context) error { return nil })

		// Assert
		if !errors.Is(err, ErrManagerClosed) {
			t.Fatalf("expected ErrManagerClosed, got %v", err)
		}
	})
}
