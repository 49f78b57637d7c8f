package llm

import (
	"fmt"
	"log/slog"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/config"
)

// NewProvider builds the configured model provider. The rate limiter wraps the
// circuit breaker, so a throttled call waits before it reaches the breaker and
// never counts as a backend failure.
func NewProvider(cfg config.LLMConfig, logger *slog.Logger) (domain.ModelProvider, error) {
	var provider domain.ModelProvider
	switch cfg.Provider {
	case "gemini", "":
		gp, err := NewGeminiProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		provider = gp
	default:
		return nil, domain.NewDomainError("NewProvider", domain.ErrConfiguration,
			fmt.Sprintf("unsupported provider %q", cfg.Provider))
	}

	if cfg.CircuitBreaker.Enabled {
		provider = NewCircuitBreakerProvider(provider, cfg.CircuitBreaker, logger)
	}
	if cfg.RequestsPerMinute > 0 {
		provider = NewRateLimitedProvider(provider, cfg.RequestsPerMinute, cfg.Burst)
	}

	logger.Debug("model provider ready",
		"provider", provider.Name(),
		"model", cfg.Model,
		"max_retries", cfg.MaxRetries,
		"circuit_breaker", cfg.CircuitBreaker.Enabled,
		"requests_per_minute", cfg.RequestsPerMinute,
	)
	return provider, nil
}
