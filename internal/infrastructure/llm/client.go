package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tarifflens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Config holds connection settings for one chat-completion provider
type Config struct {
	Name      string // provider tag used in log lines
	APIKey    string
	BaseURL   string
	Model     string
	Referer   string // HTTP-Referer attribution header (OpenRouter)
	Title     string // X-Title attribution header (OpenRouter)
	Timeout   time.Duration
	RateLimit int // sustained requests per second
}

// ChatClient speaks the OpenAI-compatible chat-completions wire format.
// OpenAI, Groq and OpenRouter all serve it; the base URL selects the
// provider.
type ChatClient struct {
	httpClient  *http.Client
	cfg         Config
	rateLimiter *rate.Limiter
}

// NewChatClient creates a client for one OpenAI-compatible provider
func NewChatClient(cfg Config) *ChatClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}

	return &ChatClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cfg:         cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one single-turn completion request and returns the first
// choice's text, trimmed. Zero-valued temperature and token limits fall
// back to 0.5 and 200. A reply with zero choices is ErrEmptyResponse.
func (c *ChatClient) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.5
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 200
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		body, status, err := c.doRequest(ctx, endpoint, payload)
		if err != nil {
			log.Printf("[LLM] %s request error (attempt %d): %v", c.cfg.Name, attempt, err)
			lastErr = err
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		// Retry on rate limiting and server-side failures
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			log.Printf("[LLM] %s API error (attempt %d) - status: %d, body: %s", c.cfg.Name, attempt, status, snippet(body))
			if status == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("%w: %s status %d", domain.ErrRateLimited, c.cfg.Name, status)
			} else {
				lastErr = fmt.Errorf("%w: %s status %d", domain.ErrLLMFailure, c.cfg.Name, status)
			}
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		if status != http.StatusOK {
			log.Printf("[LLM] %s API error - status: %d, body: %s", c.cfg.Name, status, snippet(body))
			return "", fmt.Errorf("%w: %s status %d", domain.ErrLLMFailure, c.cfg.Name, status)
		}

		var completion chatCompletionResponse
		if err := json.Unmarshal(body, &completion); err != nil {
			log.Printf("[LLM] %s JSON decode error: %v", c.cfg.Name, err)
			return "", fmt.Errorf("failed to decode response: %w", err)
		}

		if completion.Error != nil {
			log.Printf("[LLM] %s API error in body: %s", c.cfg.Name, completion.Error.Message)
			return "", fmt.Errorf("%w: %s", domain.ErrLLMFailure, completion.Error.Message)
		}

		if len(completion.Choices) == 0 {
			log.Printf("[LLM] %s returned no choices", c.cfg.Name)
			return "", domain.ErrEmptyResponse
		}

		return strings.TrimSpace(completion.Choices[0].Message.Content), nil
	}

	log.Printf("[LLM] %s all retries failed", c.cfg.Name)
	return "", lastErr
}

// doRequest executes one POST with provider headers and returns the
// response body and status code
func (c *ChatClient) doRequest(ctx context.Context, endpoint string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("User-Agent", "TariffLens/1.0")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrLLMFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

// snippet truncates a response body for log output
func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
