package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/config"
)

func TestRateLimitedProviderAllowsBurst(t *testing.T) {
	inner := &mockProvider{name: "gemini"}
	p := NewRateLimitedProvider(inner, 60, 2)

	for i := 0; i < 2; i++ {
		_, err := p.Generate(context.Background(), domain.GenerateRequest{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "gemini", p.Name())
}

func TestRateLimitedProviderRespectsContext(t *testing.T) {
	inner := &mockProvider{name: "gemini"}
	p := NewRateLimitedProvider(inner, 1, 1)

	_, err := p.Generate(context.Background(), domain.GenerateRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, domain.GenerateRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimit)
	assert.ErrorIs(t, err, domain.ErrModelAPI)
	assert.Equal(t, 1, inner.calls, "throttled call must not reach the provider")
}

func TestNewProviderWrapping(t *testing.T) {
	cfg := testLLMConfig("http://unused")
	cfg.RequestsPerMinute = 30
	cfg.Burst = 2

	p, err := NewProvider(cfg, newTestLogger())
	require.NoError(t, err)
	rl, ok := p.(*RateLimitedProvider)
	require.True(t, ok, "rate limiter should be outermost, got %T", p)
	_, ok = rl.inner.(*CircuitBreakerProvider)
	assert.True(t, ok, "circuit breaker should wrap gemini, got %T", rl.inner)

	cfg.RequestsPerMinute = 0
	cfg.CircuitBreaker.Enabled = false
	p, err = NewProvider(cfg, newTestLogger())
	require.NoError(t, err)
	_, ok = p.(*GeminiProvider)
	assert.True(t, ok, "got %T", p)
}

func TestNewProviderErrors(t *testing.T) {
	cfg := testLLMConfig("http://unused")
	cfg.Provider = "openai"
	_, err := NewProvider(cfg, newTestLogger())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	cfg = config.Defaults().LLM
	_, err = NewProvider(cfg, newTestLogger())
	assert.ErrorIs(t, err, domain.ErrConfiguration, "missing api key")
}
