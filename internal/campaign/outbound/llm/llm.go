package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrModelRequired is returned when no model name is configured.
var ErrModelRequired = errors.New("llm: model is required")

const instructions = `You write marketing emails.

Rules:
- Output exactly two labeled parts and nothing else:
  SUBJECT: <concise, title case, 45-65 characters, no spammy words>
  BODY: <120-160 words, warm and professional, no placeholders, no links>
- The greeting may be generic but professional.
- End the body with a closing salutation.`

// Config configures the chat-completions generator.
type Config struct {
	// BaseURL points at any OpenAI-compatible API. Empty means api.openai.com.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Generator asks a chat-completions model for a marketing email.
type Generator struct {
	client openai.Client
	model  string
	ins    instrument.Instrumentation
}

// New builds a Generator. The client never retries on its own.
func New(cfg Config, ins instrument.Instrumentation) (*Generator, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, ErrModelRequired
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Generator{
		client: openai.NewClient(opts...),
		model:  model,
		ins:    ins,
	}, nil
}

// Generate returns the model's raw text for prompt. Shape is not checked
// here; an empty answer is returned as "".
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := g.ins.Tracer("campaign.outbound.llm").Start(ctx, "Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.model))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage("Create a marketing email from this prompt:\n" + prompt),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	span.SetAttributes(attribute.String("llm.finish_reason", string(resp.Choices[0].FinishReason)))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
