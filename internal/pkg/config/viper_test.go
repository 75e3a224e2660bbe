package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

const sample = `
app:
  name: mailbite
  server:
    cors: "http://a.test, http://b.test,,"
recipients:
  ttl_seconds: 90
  capacity: 500
session:
  ttl_minutes: 30
mail:
  password: from-file
`

func TestNewViperFromBytes(t *testing.T) {

	t.Run("TypedGetters", func(t *testing.T) {

		// Arrange
		cfg, err := NewViperFromBytes("yaml", []byte(sample))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act & Assert
		if got := cfg.GetString("app.name"); got != "mailbite" {
			t.Fatalf("app.name = %q", got)
		}
		if got := cfg.GetSecond("recipients.ttl_seconds"); got != 90*time.Second {
			t.Fatalf("recipients.ttl_seconds = %v", got)
		}
		if got := cfg.GetMinute("session.ttl_minutes"); got != 30*time.Minute {
			t.Fatalf("session.ttl_minutes = %v", got)
		}
		if got := cfg.GetInt("recipients.capacity"); got != 500 {
			t.Fatalf("recipients.capacity = %d", got)
		}
		want := []string{"http://a.test", "http://b.test"}
		if got := cfg.GetArray("app.server.cors"); !slices.Equal(got, want) {
			t.Fatalf("app.server.cors = %v", got)
		}
		if got := cfg.GetArray("missing.key"); len(got) != 0 {
			t.Fatalf("expected empty array, got %v", got)
		}
	})

	t.Run("EnvironmentOverridesFile", func(t *testing.T) {

		// Arrange
		t.Setenv("MAIL_PASSWORD", "from-env")
		cfg, err := NewViperFromBytes("yaml", []byte(sample))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		got := cfg.GetString("mail.password")

		// Assert
		if got != "from-env" {
			t.Fatalf("expected env override, got %q", got)
		}
	})

	t.Run("TypeRequired", func(t *testing.T) {
		if _, err := NewViperFromBytes(" ", nil); err == nil {
			t.Fatalf("expected error for empty config type")
		}
	})
}

func TestLoadDotEnv(t *testing.T) {

	// Arrange
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("MAILBITE_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("MAILBITE_DOTENV_PROBE", "")
	os.Unsetenv("MAILBITE_DOTENV_PROBE")

	// Act
	LoadDotEnv(filepath.Join(dir, "missing.env"), file)

	// Assert
	if got := os.Getenv("MAILBITE_DOTENV_PROBE"); got != "loaded" {
		t.Fatalf("expected variable from .env, got %q", got)
	}
}
