package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tarifflens/backend/config"
	httpDelivery "github.com/tarifflens/backend/internal/delivery/http"
	"github.com/tarifflens/backend/internal/infrastructure/cache"
	"github.com/tarifflens/backend/internal/infrastructure/llm"
	"github.com/tarifflens/backend/internal/infrastructure/refdata"
	"github.com/tarifflens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting TariffLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Open the commodity code reference database
	store, err := refdata.Open(cfg.RefData.DBPath)
	if err != nil {
		log.Fatalf("Failed to open reference database %s: %v", cfg.RefData.DBPath, err)
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		log.Fatalf("Failed to read reference database stats: %v", err)
	}
	log.Printf("Reference database: %s (%d commodity codes, %d HS headings)",
		store.Path(), stats.CommodityCodes, stats.DistinctHSCodes)
	if stats.CommodityCodes == 0 {
		log.Printf("WARNING: reference database is empty - run the refdata import tool first")
	}

	memoryCache := cache.NewMemoryCache()
	log.Printf("Candidate cache TTL: %s", cfg.RefData.CacheTTL)

	// OpenAI handles the product type, information and rule prompts
	describer := llm.NewChatClient(llm.Config{
		Name:      "openai",
		APIKey:    cfg.LLM.OpenAI.APIKey,
		BaseURL:   cfg.LLM.OpenAI.BaseURL,
		Model:     cfg.LLM.OpenAI.Model,
		Timeout:   cfg.LLM.RequestTimeout,
		RateLimit: cfg.LLM.RateLimit,
	})

	// Every configured provider contributes HS code suggestions. OpenAI is
	// always present; the rest join when their key is set.
	codeProviders := []usecase.NamedCompleter{
		{Name: "openai", Completer: describer},
	}

	if cfg.LLM.Anthropic.APIKey != "" {
		codeProviders = append(codeProviders, usecase.NamedCompleter{
			Name: "anthropic",
			Completer: llm.NewAnthropicClient(llm.Config{
				Name:      "anthropic",
				APIKey:    cfg.LLM.Anthropic.APIKey,
				Model:     cfg.LLM.Anthropic.Model,
				Timeout:   cfg.LLM.RequestTimeout,
				RateLimit: cfg.LLM.RateLimit,
			}),
		})
	} else {
		log.Printf("WARNING: Anthropic API key not configured - provider skipped")
	}

	if cfg.LLM.Gemini.APIKey != "" {
		codeProviders = append(codeProviders, usecase.NamedCompleter{
			Name: "gemini",
			Completer: llm.NewGeminiClient(llm.Config{
				Name:      "gemini",
				APIKey:    cfg.LLM.Gemini.APIKey,
				BaseURL:   cfg.LLM.Gemini.BaseURL,
				Model:     cfg.LLM.Gemini.Model,
				Timeout:   cfg.LLM.RequestTimeout,
				RateLimit: cfg.LLM.RateLimit,
			}),
		})
	} else {
		log.Printf("WARNING: Gemini API key not configured - provider skipped")
	}

	if cfg.LLM.Groq.APIKey != "" {
		codeProviders = append(codeProviders, usecase.NamedCompleter{
			Name: "groq",
			Completer: llm.NewChatClient(llm.Config{
				Name:      "groq",
				APIKey:    cfg.LLM.Groq.APIKey,
				BaseURL:   cfg.LLM.Groq.BaseURL,
				Model:     cfg.LLM.Groq.Model,
				Timeout:   cfg.LLM.RequestTimeout,
				RateLimit: cfg.LLM.RateLimit,
			}),
		})
	} else {
		log.Printf("WARNING: Groq API key not configured - provider skipped")
	}

	log.Printf("HS code providers: %d configured", len(codeProviders))

	// OpenRouter picks the best match among the candidate descriptions
	matcher := llm.NewChatClient(llm.Config{
		Name:      "openrouter",
		APIKey:    cfg.LLM.OpenRouter.APIKey,
		BaseURL:   cfg.LLM.OpenRouter.BaseURL,
		Model:     cfg.LLM.OpenRouter.Model,
		Referer:   cfg.LLM.OpenRouter.Referer,
		Title:     "TariffLens",
		Timeout:   cfg.LLM.RequestTimeout,
		RateLimit: cfg.LLM.RateLimit,
	})

	matchingService := usecase.NewMatchingService(matcher, usecase.MatchConfig{
		Temperature: cfg.Matching.Temperature,
		MaxTokens:   cfg.Matching.MaxTokens,
	})

	classificationService := usecase.NewClassificationService(
		describer,
		codeProviders,
		matchingService,
		store,
		memoryCache,
		usecase.ClassificationConfig{
			CacheTTL:           cfg.RefData.CacheTTL,
			EnableDebugLogging: cfg.Server.Environment == "development",
		},
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(classificationService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
