package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Matching MatchingConfig
	RefData  RefDataConfig `mapstructure:"refdata"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LLMConfig holds the outbound provider configuration. OpenAI and
// OpenRouter are required; the remaining providers are optional and are
// skipped at wiring time when their key is empty.
type LLMConfig struct {
	OpenAI         ProviderConfig `mapstructure:"openai"`
	OpenRouter     ProviderConfig `mapstructure:"openrouter"`
	Anthropic      ProviderConfig `mapstructure:"anthropic"`
	Gemini         ProviderConfig `mapstructure:"gemini"`
	Groq           ProviderConfig `mapstructure:"groq"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	RateLimit      int            `mapstructure:"rate_limit"`
}

// ProviderConfig holds credentials and endpoint settings for one provider
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Referer string `mapstructure:"referer"` // OpenRouter attribution header
}

// MatchingConfig holds sampling parameters for the best-match call
type MatchingConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RefDataConfig holds commodity-code reference database configuration
type RefDataConfig struct {
	DBPath   string        `mapstructure:"db_path"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Load loads configuration from config.json and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tarifflens/")

	// Environment variable settings
	v.SetEnvPrefix("TARIFFLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. API keys default to empty
// strings so environment overrides are visible to Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// OpenAI defaults (product type/info, classification rule)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai.model", "gpt-4-turbo-preview")

	// OpenRouter defaults (best-match selection)
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.openrouter.model", "openai/gpt-4-turbo-preview")
	v.SetDefault("llm.openrouter.referer", "http://localhost:8080")

	// Optional providers for HS code consolidation
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", "claude-3-5-sonnet-20240620")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash-latest")
	v.SetDefault("llm.groq.api_key", "")
	v.SetDefault("llm.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.groq.model", "llama3-8b-8192")

	// Shared client settings
	v.SetDefault("llm.request_timeout", "60s")
	v.SetDefault("llm.rate_limit", 5)

	// Best-match sampling defaults
	v.SetDefault("matching.temperature", 0.5)
	v.SetDefault("matching.max_tokens", 500)

	// Reference data defaults
	v.SetDefault("refdata.db_path", "tarifflens.db")
	v.SetDefault("refdata.cache_ttl", "12h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.LLM.OpenRouter.APIKey == "" {
		return fmt.Errorf("OpenRouter API key is required (set TARIFFLENS_LLM_OPENROUTER_API_KEY)")
	}

	if config.LLM.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required (set TARIFFLENS_LLM_OPENAI_API_KEY)")
	}

	if config.Matching.Temperature < 0 || config.Matching.Temperature > 2 {
		return fmt.Errorf("matching temperature must be between 0 and 2, got: %v", config.Matching.Temperature)
	}

	if config.Matching.MaxTokens <= 0 {
		return fmt.Errorf("matching max_tokens must be positive, got: %d", config.Matching.MaxTokens)
	}

	if config.RefData.DBPath == "" {
		return fmt.Errorf("reference database path must not be empty")
	}

	return nil
}
