package uid

import (
	"encoding/hex"
	"testing"
)

func TestHexToken(t *testing.T) {

	t.Run("DefaultLength", func(t *testing.T) {

		// Arrange
		gen := NewHexToken(0)

		// Act
		token := gen.Generate()

		// Assert
		if len(token) != DefaultTokenLength {
			t.Fatalf("expected length %d, got %q", DefaultTokenLength, token)
		}
		if _, err := hex.DecodeString(token); err != nil {
			t.Fatalf("expected hex token, got %q", token)
		}
	})

	t.Run("Clamped", func(t *testing.T) {
		if got := len(NewHexToken(3).Generate()); got != 8 {
			t.Fatalf("expected length 8, got %d", got)
		}
		if got := len(NewHexToken(64).Generate()); got != 32 {
			t.Fatalf("expected length 32, got %d", got)
		}
	})

	t.Run("Distinct", func(t *testing.T) {

		// Arrange
		gen := NewHexToken(12)
		seen := make(map[string]struct{}, 1000)

		// Act & Assert
		for range 1000 {
			token := gen.Generate()
			if _, dup := seen[token]; dup {
				t.Fatalf("duplicate token %q", token)
			}
			seen[token] = struct{}{}
		}
	})
}

func TestSnowflake(t *testing.T) {

	// Arrange
	gen, err := NewSnowflake()
	if err != nil {
		t.Fatalf("NewSnowflake: %v", err)
	}

	// Act
	first := gen.Generate()
	second := gen.Generate()

	// Assert
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}
}
