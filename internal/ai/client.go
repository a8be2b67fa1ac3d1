// Package ai wraps the external text-completion API used by the chat
// feature. Each inbound chat message costs two completion calls: one to
// classify the message (analysis), one to generate the reply.
package ai

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyCompletion indicates the model returned no choices.
var ErrEmptyCompletion = errors.New("empty completion response")

// Completer is the minimal completion surface the chat handler depends on.
// The concrete client is injected at construction so tests can substitute
// a fake.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config holds configuration for the completion client.
type Config struct {
	// APIKey is the API key for the completion service.
	APIKey string

	// BaseURL overrides the API endpoint. Empty uses the provider default.
	BaseURL string

	// Model is the completion model identifier.
	Model string

	// Timeout bounds each completion round trip.
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible completion API via langchaingo.
type Client struct {
	llm     llms.Model
	timeout time.Duration
}

// NewClient builds a completion client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai: missing API key")
	}

	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{llm: llm, timeout: timeout}, nil
}

// Complete performs one completion round trip under a bounded timeout.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.7))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}
