package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tarifflens/backend/internal/domain"
)

// NamedCompleter pairs a chat client with the provider name used in
// the per-source HS code breakdown
type NamedCompleter struct {
	Name      string
	Completer domain.ChatCompleter
}

// ClassificationConfig holds configuration for the classification service
type ClassificationConfig struct {
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// ClassificationService runs the product classification pipeline
type ClassificationService struct {
	preprocessor  *ProductPreprocessor
	describer     domain.ChatCompleter
	codeProviders []NamedCompleter
	matching      *MatchingService
	codes         domain.CommodityCodeRepository
	cache         domain.CacheRepository
	cacheTTL      time.Duration
}

// NewClassificationService creates a new classification service with
// dependencies. The describer client handles the product type,
// information and rule prompts; codeProviders are queried independently
// for HS code suggestions.
func NewClassificationService(
	describer domain.ChatCompleter,
	codeProviders []NamedCompleter,
	matching *MatchingService,
	codes domain.CommodityCodeRepository,
	cache domain.CacheRepository,
	config ClassificationConfig,
) *ClassificationService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 12 * time.Hour
	}

	return &ClassificationService{
		preprocessor:  NewProductPreprocessor(config.EnableDebugLogging),
		describer:     describer,
		codeProviders: codeProviders,
		matching:      matching,
		codes:         codes,
		cache:         cache,
		cacheTTL:      cacheTTL,
	}
}

// Classify runs the full pipeline for one product name.
// Flow: clean name -> describe type and details -> collect HS codes
// from each provider -> look up reference candidates -> select best
// match -> determine classification rule
func (s *ClassificationService) Classify(ctx context.Context, productName string) (*domain.ProductInfo, error) {
	name := s.preprocessor.CleanName(productName)
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}

	productType, err := s.requestProductType(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	productInfo, err := s.requestProductInformation(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	hsCodes, sources := s.collectHSCodes(ctx, productType, productInfo)

	candidates, err := s.lookupCandidates(ctx, hsCodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	match, err := s.matching.FindBestMatch(ctx, productType, productInfo, hsCodes, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	rule := s.requestClassificationRule(ctx, productType, productInfo)

	return &domain.ProductInfo{
		Name:               name,
		Type:               productType,
		Information:        productInfo,
		HSCodes:            hsCodes,
		Sources:            sources,
		Matches:            candidates,
		BestCode:           match.BestCode,
		BestReasoning:      match.Reasoning,
		ClassificationRule: rule,
	}, nil
}

func (s *ClassificationService) requestProductType(ctx context.Context, name string) (string, error) {
	return s.describer.Complete(ctx, domain.ChatRequest{
		System:      "You are an expert in product classification.",
		Prompt:      fmt.Sprintf("What is the product type and category for %s?", name),
		Temperature: 0.5,
		MaxTokens:   200,
	})
}

func (s *ClassificationService) requestProductInformation(ctx context.Context, name string) (string, error) {
	return s.describer.Complete(ctx, domain.ChatRequest{
		System: "You are an expert in product descriptions.",
		Prompt: fmt.Sprintf("Provide detailed information about %s, including material composition, "+
			"primary use, and distinctive features.", name),
		Temperature: 0.5,
		MaxTokens:   200,
	})
}

// collectHSCodes queries every configured provider for HS code
// suggestions and merges the extracted codes in provider order,
// first appearance winning. A failing provider is logged and skipped
// so one outage cannot sink the whole pipeline.
func (s *ClassificationService) collectHSCodes(ctx context.Context, productType, productInfo string) ([]string, map[string][]string) {
	prompt := fmt.Sprintf("Based on the HS Nomenclature 2017 edition, provide the most specific "+
		"6-digit HS code classification for %s and %s.", productType, productInfo)

	sources := make(map[string][]string, len(s.codeProviders))
	seen := make(map[string]bool)
	var union []string

	for _, provider := range s.codeProviders {
		reply, err := provider.Completer.Complete(ctx, domain.ChatRequest{
			System: "You are an expert in HS code classification.",
			Prompt: prompt,
		})
		if err != nil {
			log.Printf("[PIPELINE] %s HS code request failed: %v", provider.Name, err)
			sources[provider.Name] = []string{}
			continue
		}

		codes := s.preprocessor.ExtractHSCodes(reply)
		// Empty slice rather than nil so the per-source breakdown
		// renders as [] on the wire
		if codes == nil {
			codes = []string{}
		}
		sources[provider.Name] = codes
		for _, code := range codes {
			if seen[code] {
				continue
			}
			seen[code] = true
			union = append(union, code)
		}
	}

	if len(union) == 0 {
		union = []string{"No HS codes found"}
	}

	return union, sources
}

// lookupCandidates resolves each extracted HS code against the
// reference data, consulting the cache before the store. Codes that
// cannot be normalized to 6 digits are skipped with a diagnostic,
// which also covers the "No HS codes found" placeholder.
func (s *ClassificationService) lookupCandidates(ctx context.Context, hsCodes []string) ([]domain.CandidateCode, error) {
	var candidates []domain.CandidateCode
	for _, raw := range hsCodes {
		normalized, err := domain.NormalizeHSCode(raw)
		if err != nil {
			log.Printf("[PIPELINE] Skipping unusable HS code %q: %v", raw, err)
			continue
		}

		cacheKey := "refdata:" + normalized
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			if matches, ok := cached.([]domain.CandidateCode); ok {
				candidates = append(candidates, matches...)
				continue
			}
		}

		matches, err := s.codes.FindByHSCode(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("commodity code lookup failed: %w", err)
		}
		if err := s.cache.Set(ctx, cacheKey, matches, s.cacheTTL); err != nil {
			log.Printf("[PIPELINE] Failed to cache lookup for %s: %v", normalized, err)
		}
		candidates = append(candidates, matches...)
	}

	return candidates, nil
}

// requestClassificationRule asks which of the six general
// interpretation rules applied. Failures degrade to a placeholder
// instead of failing the pipeline.
func (s *ClassificationService) requestClassificationRule(ctx context.Context, productType, productInfo string) string {
	prompt := fmt.Sprintf("Based on the general rules for the interpretation of the harmonized system, "+
		"which rule, from 1-6, was used to classify the product? Product Type: %s, Product Information: %s",
		productType, productInfo)

	reply, err := s.describer.Complete(ctx, domain.ChatRequest{
		Prompt:      prompt,
		Temperature: 0.5,
		MaxTokens:   200,
	})
	if err != nil {
		log.Printf("[PIPELINE] Classification rule request failed: %v", err)
		return "Classification rule unavailable"
	}

	return reply
}
