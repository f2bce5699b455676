// Package ai wraps an OpenAI-compatible chat completion endpoint (Groq by
// default) behind a single-prompt text generator.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marathononline/training-api/internal/config"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrNotConfigured = errors.New("ai client is not configured")
	ErrEmptyResponse = errors.New("ai returned no choices")
)

// TextGenerator turns a prompt into raw model text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client is a TextGenerator backed by go-openai.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewClient builds a client from cfg. A missing API key yields a client whose
// Generate always fails, which sends plan generation down the fallback path.
func NewClient(cfg config.AIConfig) *Client {
	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("ai.api_key not set, plan generation will use the rule-based generator")
		return c
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	c.client = openai.NewClientWithConfig(oc)
	return c
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	log.Debug().
		Str("model", c.model).
		Int("tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(started)).
		Msg("ai completion")
	return resp.Choices[0].Message.Content, nil
}
