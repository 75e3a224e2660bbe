package jwt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

func newTestSymmetric(t *testing.T, clk *clock.Fixed) *Symmetric {
	t.Helper()

	s, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("k", 64)),
		Issuer:    "identity.test",
		Audiences: []string{"mailbite"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("NewHS512: %v", err)
	}
	return s
}

func TestSymmetric(t *testing.T) {

	t.Run("RoundTrip", func(t *testing.T) {

		// Arrange
		clk := &clock.Fixed{At: time.Now()}
		s := newTestSymmetric(t, clk)
		token, err := s.Generate("user-42", "ada@x.com")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		// Act
		claims, err := s.Verify(token)

		// Assert
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if claims.UserID() != "user-42" || claims.Email != "ada@x.com" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	})

	t.Run("Expired", func(t *testing.T) {

		// Arrange
		clk := &clock.Fixed{At: time.Now()}
		s := newTestSymmetric(t, clk)
		token, err := s.Generate("user-42", "")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		clk.Advance(2 * time.Hour)

		// Act
		_, err = s.Verify(token)

		// Assert
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("ShortSecret", func(t *testing.T) {
		if _, err := NewHS512(Config{Secret: []byte("short")}); !errors.Is(err, ErrSigningKeyTooShort) {
			t.Fatalf("expected ErrSigningKeyTooShort, got %v", err)
		}
	})

	t.Run("Tampered", func(t *testing.T) {

		// Arrange
		s := newTestSymmetric(t, &clock.Fixed{At: time.Now()})
		token, _ := s.Generate("user-42", "")

		// Act
		_, err := s.Verify(token + "x")

		// Assert
		if err == nil {
			t.Fatalf("expected tampered token to fail")
		}
	})
}

func TestUserID(t *testing.T) {

	// Arrange
	var claims Claims
	claims.Subject = "u1"

	// Act
	anonymous := UserID(context.Background())
	authed := UserID(SetAuth(context.Background(), claims))

	// Assert
	if anonymous != "" {
		t.Fatalf("expected anonymous, got %q", anonymous)
	}
	if authed != "u1" {
		t.Fatalf("expected u1, got %q", authed)
	}
}
