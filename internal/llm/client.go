// Package llm talks to hosted language-model APIs.
//
// Two providers are supported: OpenAI chat completions (through langchaingo)
// and Google Gemini (through the genai SDK). Both sit behind the Client
// interface and are normally wrapped in a RetryingClient.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/planner/internal/config"
	"github.com/fyrsmithlabs/planner/internal/logging"
	"golang.org/x/time/rate"
)

var (
	// ErrNoAPIKey is returned by New when no API key is configured.
	ErrNoAPIKey = errors.New("no API key configured")

	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Request is a single prompt/response exchange.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the configured provider client wrapped in retries and rate
// limiting. It returns ErrNoAPIKey when cfg carries no key.
func New(ctx context.Context, cfg config.LLMConfig, logger *logging.Logger) (Client, error) {
	if !cfg.APIKey.IsSet() {
		return nil, ErrNoAPIKey
	}

	httpClient := &http.Client{Timeout: cfg.Timeout.Duration()}

	var (
		base Client
		err  error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		base, err = NewGeminiClient(ctx, GeminiConfig{
			APIKey:     cfg.APIKey.Value(),
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			HTTPClient: httpClient,
		})
	case config.ProviderOpenAI, "":
		base, err = NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.APIKey.Value(),
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			HTTPClient: httpClient,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &RetryingClient{
		Client:      base,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff.Duration(),
		Limiter:     limiter,
		Logger:      logger,
	}, nil
}
