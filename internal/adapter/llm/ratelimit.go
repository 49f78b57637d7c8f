package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"mcpchat/internal/domain"
)

// RateLimitedProvider paces calls to the wrapped provider with a token bucket.
// Callers block until a token is available or their context ends.
type RateLimitedProvider struct {
	inner   domain.ModelProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows requestsPerMinute calls with the given burst.
func NewRateLimitedProvider(inner domain.ModelProvider, requestsPerMinute, burst int) *RateLimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst),
	}
}

// Generate implements domain.ModelProvider.
func (p *RateLimitedProvider) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrModelAPI, domain.ErrRateLimit, err)
	}
	return p.inner.Generate(ctx, req)
}

// Name implements domain.ModelProvider.
func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

var _ domain.ModelProvider = (*RateLimitedProvider)(nil)
