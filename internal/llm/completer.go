package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/service"
)

// Completer wraps a provider client with rate limiting, response caching,
// and transport-level retry. It implements the service.TextCompleter
// interface.
type Completer struct {
	client      Client
	cache       *completionCache
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
	logger      *slog.Logger
}

// NewCompleter creates a completer for the configured provider.
func NewCompleter(cfg Config, logger *slog.Logger) (*Completer, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
	}

	return &Completer{
		client:      client,
		cache:       newCompletionCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
		logger:      logger,
	}, nil
}

// Complete issues one text-completion request, consulting the cache first.
func (c *Completer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	key := c.cache.key(systemPrompt, userPrompt)
	if text, found := c.cache.get(key); found {
		c.logger.Debug("completion cache hit")
		return text, nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	var text string
	err := common.WithRetry(ctx, func() error {
		result, callErr := c.client.Complete(ctx, systemPrompt, userPrompt)
		if callErr != nil {
			return &common.RetryableError{Err: callErr, Retryable: true}
		}
		text = result
		return nil
	}, c.retryOpts)
	if err != nil {
		return "", err
	}

	c.cache.set(key, text)
	return text, nil
}

// Close stops background goroutines and cleans up resources.
func (c *Completer) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.rateLimiter != nil {
		c.rateLimiter.Close()
	}
	return nil
}
