package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tarifflens/backend/internal/domain"
)

func TestNewMatchingService(t *testing.T) {
	t.Run("applies default prompt parameters", func(t *testing.T) {
		svc := NewMatchingService(NewMockChatCompleter("ok"), MatchConfig{})
		if svc.config.Temperature != 0.5 {
			t.Errorf("Temperature = %v, want 0.5", svc.config.Temperature)
		}
		if svc.config.MaxTokens != 500 {
			t.Errorf("MaxTokens = %v, want 500", svc.config.MaxTokens)
		}
	})

	t.Run("keeps custom prompt parameters", func(t *testing.T) {
		svc := NewMatchingService(NewMockChatCompleter("ok"), MatchConfig{Temperature: 0.2, MaxTokens: 800})
		if svc.config.Temperature != 0.2 {
			t.Errorf("Temperature = %v, want 0.2", svc.config.Temperature)
		}
		if svc.config.MaxTokens != 800 {
			t.Errorf("MaxTokens = %v, want 800", svc.config.MaxTokens)
		}
	})
}

func TestFindBestMatch(t *testing.T) {
	ctx := context.Background()

	candidates := []domain.CandidateCode{
		{Code: "8471301000", Description: "Portable computers, weighing not more than 10 kg"},
		{Code: "8471302000", Description: "Laptops including notebooks and subnotebooks"},
	}
	hsCodes := []string{"847130"}

	t.Run("selects the candidate named in the reasoning", func(t *testing.T) {
		completer := NewMockChatCompleter("The best match is 8471302000 because laptops are specifically covered.")
		svc := NewMatchingService(completer, MatchConfig{})

		result, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, candidates)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}
		if result.BestCode != "8471302000" {
			t.Errorf("BestCode = %q, want 8471302000", result.BestCode)
		}
		if result.Reasoning != "The best match is 8471302000 because laptops are specifically covered." {
			t.Errorf("Reasoning = %q, want the raw model reply", result.Reasoning)
		}
	})

	t.Run("earlier candidate wins when several are named", func(t *testing.T) {
		completer := NewMockChatCompleter("Both 8471301000 and 8471302000 could apply, with slight differences.")
		svc := NewMatchingService(completer, MatchConfig{})

		result, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, candidates)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}
		if result.BestCode != "8471301000" {
			t.Errorf("BestCode = %q, want 8471301000", result.BestCode)
		}
	})

	t.Run("accepts a candidate listed among the extracted codes", func(t *testing.T) {
		// The reply never restates a code, so membership in the
		// extracted code list decides
		completer := NewMockChatCompleter("The first candidate describes the product well.")
		svc := NewMatchingService(completer, MatchConfig{})

		result, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer",
			[]string{"8471301000"}, candidates)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}
		if result.BestCode != "8471301000" {
			t.Errorf("BestCode = %q, want 8471301000", result.BestCode)
		}
	})

	t.Run("returns no best code when nothing matches", func(t *testing.T) {
		completer := NewMockChatCompleter("None of the provided descriptions fit this product well.")
		svc := NewMatchingService(completer, MatchConfig{})

		result, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, candidates)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}
		if result.BestCode != "" {
			t.Errorf("BestCode = %q, want empty", result.BestCode)
		}
		if result.Reasoning != "None of the provided descriptions fit this product well." {
			t.Errorf("Reasoning = %q, want the raw model reply", result.Reasoning)
		}
	})

	t.Run("handles an empty candidate list", func(t *testing.T) {
		completer := NewMockChatCompleter("There are no descriptions to compare against.")
		svc := NewMatchingService(completer, MatchConfig{})

		result, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, nil)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}
		if result.BestCode != "" {
			t.Errorf("BestCode = %q, want empty", result.BestCode)
		}
		if result.Reasoning == "" {
			t.Error("expected reasoning to be preserved")
		}
	})

	t.Run("skips candidates with missing fields", func(t *testing.T) {
		broken := []domain.CandidateCode{
			{Code: "8471301000"},
			{Description: "Laptops and notebooks"},
			{Code: "8471302000", Description: "Laptops including notebooks and subnotebooks"},
		}
		completer := NewMockChatCompleter("8471301000 and 8471302000 both appear; prefer the laptop entry.")
		svc := NewMatchingService(completer, MatchConfig{})

		result, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, broken)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}
		// The incomplete entries never qualify, even when their code
		// appears in the reply
		if result.BestCode != "8471302000" {
			t.Errorf("BestCode = %q, want 8471302000", result.BestCode)
		}
	})

	t.Run("returns fixed message when the model sends no choices", func(t *testing.T) {
		completer := NewMockChatCompleter()
		svc := NewMatchingService(completer, MatchConfig{})

		result, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, candidates)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}
		if result.BestCode != "" {
			t.Errorf("BestCode = %q, want empty", result.BestCode)
		}
		if result.Reasoning != "no valid response" {
			t.Errorf("Reasoning = %q, want %q", result.Reasoning, "no valid response")
		}
	})

	t.Run("propagates request failures", func(t *testing.T) {
		completer := NewMockChatCompleter("unused")
		completer.err = fmt.Errorf("%w: openrouter status 500", domain.ErrLLMFailure)
		svc := NewMatchingService(completer, MatchConfig{})

		_, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, candidates)
		if !errors.Is(err, domain.ErrLLMFailure) {
			t.Errorf("error = %v, want ErrLLMFailure", err)
		}
	})

	t.Run("sends prompt with product details and descriptions", func(t *testing.T) {
		completer := NewMockChatCompleter("8471301000")
		svc := NewMatchingService(completer, MatchConfig{})

		_, err := svc.FindBestMatch(ctx, "Laptop", "Portable computer", hsCodes, candidates)
		if err != nil {
			t.Fatalf("FindBestMatch() error = %v", err)
		}

		if len(completer.requests) != 1 {
			t.Fatalf("requests = %d, want 1", len(completer.requests))
		}
		req := completer.requests[0]
		if req.System != "" {
			t.Errorf("System = %q, want empty", req.System)
		}
		if req.Temperature != 0.5 {
			t.Errorf("Temperature = %v, want 0.5", req.Temperature)
		}
		if req.MaxTokens != 500 {
			t.Errorf("MaxTokens = %v, want 500", req.MaxTokens)
		}
		for _, want := range []string{
			"Product type: Laptop",
			"Product information: Portable computer",
			"The extracted commodity codes are: 847130",
			"* Code: 8471301000",
			"Laptops including notebooks and subnotebooks",
			"which code is the best match and why?",
		} {
			if !strings.Contains(req.Prompt, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
	})
}
