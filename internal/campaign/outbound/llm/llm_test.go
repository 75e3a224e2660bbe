package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1767225600,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newTestGenerator(t *testing.T, h http.HandlerFunc) *Generator {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := New(Config{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "test-model"}, instrument.NewNoop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func TestGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {

		// Arrange
		var got chatRequest
		var auth string
		g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
				http.NotFound(w, r)
				return
			}
			auth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, completion("SUBJECT: Big Sale\nBODY: Save now.\n"))
		})

		// Act
		text, err := g.Generate(context.Background(), "promo for sale")

		// Assert
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if text != "SUBJECT: Big Sale\nBODY: Save now." {
			t.Fatalf("Generate() = %q", text)
		}
		if auth != "Bearer sk-test" || got.Model != "test-model" {
			t.Fatalf("auth = %q, model = %q", auth, got.Model)
		}
		if len(got.Messages) != 2 || got.Messages[0].Role != "system" || !strings.Contains(got.Messages[1].Content, "promo for sale") {
			t.Fatalf("messages = %+v", got.Messages)
		}
	})

	t.Run("UpstreamError", func(t *testing.T) {

		// Arrange
		calls := 0
		g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
		})

		// Act
		_, err := g.Generate(context.Background(), "promo")

		// Assert
		if err == nil {
			t.Fatalf("Generate() error = nil, want error")
		}
		if calls != 1 {
			t.Fatalf("calls = %d, want 1 (no retries)", calls)
		}
	})

	t.Run("NoChoices", func(t *testing.T) {

		// Arrange
		g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
		})

		// Act
		text, err := g.Generate(context.Background(), "promo")

		// Assert
		if err != nil || text != "" {
			t.Fatalf("Generate() = %q, %v", text, err)
		}
	})

	t.Run("ModelRequired", func(t *testing.T) {

		// Act
		_, err := New(Config{APIKey: "k"}, instrument.NewNoop())

		// Assert
		if !errors.Is(err, ErrModelRequired) {
			t.Fatalf("New() error = %v, want ErrModelRequired", err)
		}
	})
}
