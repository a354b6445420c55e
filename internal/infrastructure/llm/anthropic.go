package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tarifflens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// AnthropicClient serves chat completions through the official Claude SDK
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	rateLimiter *rate.Limiter
}

// NewAnthropicClient creates a Claude-backed chat client. BaseURL is only
// set for tests against a local stand-in server.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
	}
}

// Complete sends one single-turn message and returns the first text block
func (c *AnthropicClient) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	// Wait for rate limiter
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	// The messages API requires an explicit output cap
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		log.Printf("[LLM] anthropic request error: %v", err)
		return "", fmt.Errorf("%w: %v", domain.ErrLLMFailure, err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}

	log.Printf("[LLM] anthropic returned no text content")
	return "", domain.ErrEmptyResponse
}
