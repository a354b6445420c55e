package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tarifflens/backend/internal/domain"
)

// MatchConfig holds tuning for the best-match selection prompt
type MatchConfig struct {
	Temperature float64
	MaxTokens   int
}

// MatchingService selects the best commodity code for a product from
// the reference candidates using a chat model
type MatchingService struct {
	completer domain.ChatCompleter
	config    MatchConfig
}

// NewMatchingService creates a new matching service
func NewMatchingService(completer domain.ChatCompleter, config MatchConfig) *MatchingService {
	if config.Temperature == 0 {
		config.Temperature = 0.5
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}

	return &MatchingService{
		completer: completer,
		config:    config,
	}
}

// FindBestMatch asks the model which candidate commodity code fits the
// product best and scans its reasoning for the selected code.
// Flow: filter candidates -> build prompt -> single completion ->
// match candidates against the reasoning
func (s *MatchingService) FindBestMatch(
	ctx context.Context,
	productType string,
	productInfo string,
	hsCodes []string,
	candidates []domain.CandidateCode,
) (*domain.MatchResult, error) {
	valid := make([]domain.CandidateCode, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Code == "" || candidate.Description == "" {
			log.Printf("[MATCH] Skipping candidate with missing code or description: %+v", candidate)
			continue
		}
		valid = append(valid, candidate)
	}

	prompt := buildMatchPrompt(productType, productInfo, hsCodes, valid)

	reply, err := s.completer.Complete(ctx, domain.ChatRequest{
		Prompt:      prompt,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyResponse) {
			// The model returned no choices at all
			return &domain.MatchResult{Reasoning: "no valid response"}, nil
		}
		return nil, fmt.Errorf("best match selection failed: %w", err)
	}

	result := &domain.MatchResult{Reasoning: reply}
	for _, candidate := range valid {
		inReasoning := strings.Contains(reply, candidate.Code)
		if !inReasoning && !containsCode(hsCodes, candidate.Code) {
			continue
		}
		if !inReasoning {
			// Accepted only because the code appears in the extracted
			// HS code list, not in the reasoning text itself
			log.Printf("[MATCH] flag: code %s accepted via extracted HS code list, not reasoning text", candidate.Code)
		}
		result.BestCode = candidate.Code
		break
	}

	return result, nil
}

// buildMatchPrompt assembles the selection prompt from the product
// description and the valid candidate entries
func buildMatchPrompt(productType, productInfo string, hsCodes []string, candidates []domain.CandidateCode) string {
	var b strings.Builder

	fmt.Fprintf(&b, "I have analyzed a product and its information:\nProduct type: %s\nProduct information: %s\n\n",
		productType, productInfo)
	fmt.Fprintf(&b, "The extracted commodity codes are: %s\nHere are the descriptions for each code:\n\n",
		strings.Join(hsCodes, ", "))

	for _, candidate := range candidates {
		fmt.Fprintf(&b, "\n* Code: %s\n%s", candidate.Code, candidate.Description)
	}

	b.WriteString("\nBased on the product type, information, and available commodity code descriptions, " +
		"which code is the best match and why? Please explain your reasoning and highlight key similarities or discrepancies.")

	return b.String()
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
