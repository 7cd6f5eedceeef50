// Package generation produces answers from a prompt with an OpenAI chat model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the chat model used for answers.
	DefaultModel = openai.ChatModelGPT3_5Turbo

	// DefaultTemperature keeps answers close to the retrieved context.
	DefaultTemperature = 0.2

	// DefaultMaxTokens is the maximum prompt length before truncation (in tokens).
	DefaultMaxTokens = 12000
)

// ErrNoChoices is returned when the model answers with no completion.
var ErrNoChoices = errors.New("chat completion returned no choices")

// Config configures a ChatGenerator. Zero values select the defaults.
type Config struct {
	Model       string
	Temperature *float64
	MaxTokens   int
	Logger      *slog.Logger
}

// ChatGenerator answers prompts with a single-message chat completion.
type ChatGenerator struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewChatGenerator creates a generator with the given OpenAI client.
func NewChatGenerator(client *openai.Client, cfg Config) *ChatGenerator {
	g := &ChatGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: DefaultTemperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if cfg.Temperature != nil {
		g.temperature = *cfg.Temperature
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Model returns the chat model name.
func (g *ChatGenerator) Model() string { return g.model }

// Generate sends prompt as one user message and returns the first choice's
// content verbatim. Rate limit errors (HTTP 429) are retried with
// exponential backoff; other errors fail immediately.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = g.truncatePrompt(prompt)

	var answer string
	operation := func() error {
		resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model:       g.model,
			Temperature: openai.Float(g.temperature),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrNoChoices)
		}
		answer = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return answer, nil
}

// truncatePrompt truncates the prompt to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *ChatGenerator) truncatePrompt(prompt string) string {
	maxChars := g.maxTokens * 4

	runes := []rune(prompt)
	if len(runes) <= maxChars {
		return prompt
	}

	g.logger.Warn("Truncating prompt",
		"from_chars", len(runes),
		"to_chars", maxChars,
		"max_tokens", g.maxTokens,
	)
	return string(runes[:maxChars])
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
