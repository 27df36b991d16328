package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// Completer produces a text completion for a prompt with short history.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// Turn is one prior message in the conversation.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// Config tunes the completion client.
type Config struct {
	APIKey       string
	Model        string
	MaxTokens    int64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client calls the Anthropic messages API with a fixed bounded retry count
// and linear backoff between attempts.
type Client struct {
	client       sdk.Client
	model        string
	maxTokens    int64
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewClient builds a completion client from config.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		// SDK-level retries are disabled so the backoff policy lives in one place.
		client:       sdk.NewClient(option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       logger,
	}
}

// Complete sends the conversation and returns the assistant's text reply.
// Attempt n waits n*RetryBackoff before retrying; the last error is returned
// once the retry limit is reached.
func (c *Client) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  toMessages(turns),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		msg, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return textOf(msg), nil
		}
		lastErr = err
		c.logger.Warn("completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err),
		)
		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries, lastErr)
}

func toMessages(turns []Turn) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(turns))
	for i, t := range turns {
		block := sdk.NewTextBlock(t.Text)
		switch t.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

func textOf(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
