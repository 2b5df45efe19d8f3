package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/spf13/viper"
)

// llmConfig assembles the provider configuration from viper settings.
// Shared by the commands that talk to an LLM.
func llmConfig() (llm.Config, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "openai" // default provider
	}

	cfg := llm.Config{
		Provider:       provider,
		Model:          viper.GetString("llm.model"),
		EmbeddingModel: viper.GetString("llm.embedding_model"),
		BaseURL:        viper.GetString("llm.base_url"),
		Temperature:    viper.GetFloat64("llm.temperature"),
		MaxTokens:      viper.GetInt("llm.max_tokens"),
		MaxRetries:     viper.GetInt("llm.max_retries"),
		RetryDelay:     viper.GetDuration("llm.retry_delay"),
		CacheTTL:       viper.GetDuration("llm.cache_ttl"),
		RateLimit:      viper.GetInt("llm.rate_limit"),
	}

	// Set defaults if not specified
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60 // requests per minute
	}

	// Get API key based on provider
	switch provider {
	case "openai":
		apiKey := viper.GetString("llm.openai_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return llm.Config{}, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

	case "anthropic":
		apiKey := viper.GetString("llm.anthropic_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return llm.Config{}, fmt.Errorf("anthropic API key not found in config or ANTHROPIC_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

	default:
		return llm.Config{}, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	return cfg, nil
}

// createCompleter builds the cached, rate-limited text completer.
func createCompleter() (*llm.Completer, error) {
	cfg, err := llmConfig()
	if err != nil {
		return nil, err
	}

	completer, err := llm.NewCompleter(cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM completer: %w", err)
	}
	return completer, nil
}

// createEmbedder builds the embedding client used for semantic scoring
// and the pattern similarity index. Anthropic has no embeddings API, so
// embeddings always go through OpenAI; when the OpenAI key is missing the
// scorer falls back to its neutral similarity.
func createEmbedder() (*llm.OpenAIEmbedder, error) {
	apiKey := viper.GetString("llm.openai_api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required for embeddings")
	}

	cfg := llm.Config{
		Provider:       "openai",
		APIKey:         apiKey,
		EmbeddingModel: viper.GetString("llm.embedding_model"),
		BaseURL:        viper.GetString("llm.base_url"),
	}
	return llm.NewOpenAIEmbedder(cfg)
}
