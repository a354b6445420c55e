package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tarifflens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// GeminiClient speaks the Generative Language REST API
type GeminiClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	rateLimiter *rate.Limiter
}

// NewGeminiClient creates a Gemini-backed chat client
func NewGeminiClient(cfg Config) *GeminiClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}

	return &GeminiClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends one generateContent request and returns the first
// candidate's text. The API has no separate system role, so a system
// instruction is prepended to the prompt text.
func (c *GeminiClient) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	text := req.Prompt
	if req.System != "" {
		text = req.System + "\n\n" + req.Prompt
	}

	genReq := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
	}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		genReq.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	payload, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		body, status, err := c.doRequest(ctx, endpoint, payload)
		if err != nil {
			log.Printf("[LLM] gemini request error (attempt %d): %v", attempt, err)
			lastErr = err
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			log.Printf("[LLM] gemini API error (attempt %d) - status: %d, body: %s", attempt, status, snippet(body))
			if status == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("%w: gemini status %d", domain.ErrRateLimited, status)
			} else {
				lastErr = fmt.Errorf("%w: gemini status %d", domain.ErrLLMFailure, status)
			}
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		if status != http.StatusOK {
			log.Printf("[LLM] gemini API error - status: %d, body: %s", status, snippet(body))
			return "", fmt.Errorf("%w: gemini status %d", domain.ErrLLMFailure, status)
		}

		var genResp geminiResponse
		if err := json.Unmarshal(body, &genResp); err != nil {
			log.Printf("[LLM] gemini JSON decode error: %v", err)
			return "", fmt.Errorf("failed to decode response: %w", err)
		}

		if genResp.Error != nil {
			log.Printf("[LLM] gemini API error in body: %s", genResp.Error.Message)
			return "", fmt.Errorf("%w: %s", domain.ErrLLMFailure, genResp.Error.Message)
		}

		if len(genResp.Candidates) == 0 {
			log.Printf("[LLM] gemini returned no candidates")
			return "", domain.ErrEmptyResponse
		}

		var out strings.Builder
		for _, part := range genResp.Candidates[0].Content.Parts {
			out.WriteString(part.Text)
		}
		return strings.TrimSpace(out.String()), nil
	}

	log.Printf("[LLM] gemini all retries failed")
	return "", lastErr
}

// doRequest executes one POST and returns the response body and status code
func (c *GeminiClient) doRequest(ctx context.Context, endpoint string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TariffLens/1.0")

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
