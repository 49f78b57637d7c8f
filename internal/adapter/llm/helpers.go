package llm

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/tracer"
)

// maxErrorBody bounds how much of an error response ends up in messages.
const maxErrorBody = 2048

// Default provider timeouts.
const (
	defaultConnTimeout = 30 * time.Second
	defaultRespTimeout = 120 * time.Second
)

// Connection pool settings for a single model host.
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 120 * time.Second
)

// newPooledTransport creates an http.Transport with per-connection timeouts.
func newPooledTransport(connTimeout, respTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		ForceAttemptHTTP2:     true,
	}
}

// newHTTPClient builds the client handed to resty. Zero timeouts fall back
// to the defaults.
func newHTTPClient(connTimeout, respTimeout time.Duration) *http.Client {
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	if respTimeout == 0 {
		respTimeout = defaultRespTimeout
	}
	return &http.Client{
		Transport: newPooledTransport(connTimeout, respTimeout),
		Timeout:   connTimeout + respTimeout,
	}
}

// logGenerateCompleted logs the standard debug message after a model round trip.
func logGenerateCompleted(logger *slog.Logger, providerName string, result *domain.GenerateResponse) {
	logger.Debug("model generate completed",
		"provider", providerName,
		"model", result.Model,
		"candidates", len(result.Candidates),
		"tokens", result.Usage.TotalTokens,
	)
}

// setUsageAttrs adds token usage attributes to a trace span.
func setUsageAttrs(span trace.Span, usage domain.Usage) {
	span.SetAttributes(
		tracer.IntAttr("llm.prompt_tokens", usage.PromptTokens),
		tracer.IntAttr("llm.completion_tokens", usage.CompletionTokens),
	)
}

// mapHTTPError maps an HTTP status code + response body to a domain error.
// Every result wraps ErrModelAPI; known statuses also wrap a refinement so
// the circuit breaker, retry policy and CLI hints can classify them.
func mapHTTPError(statusCode int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	detail := fmt.Sprintf("API error %d: %s", statusCode, string(body))

	switch {
	case statusCode == http.StatusTooManyRequests: // 429
		return fmt.Errorf("%w: %w: %s", domain.ErrModelAPI, domain.ErrRateLimit, detail)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden: // 401, 403
		return fmt.Errorf("%w: %w: %s", domain.ErrModelAPI, domain.ErrAuthInvalid, detail)
	case statusCode == http.StatusRequestEntityTooLarge: // 413
		return fmt.Errorf("%w: %w: %s", domain.ErrModelAPI, domain.ErrContextOverflow, detail)
	default:
		return fmt.Errorf("%w: %s", domain.ErrModelAPI, detail)
	}
}

// retryableStatus reports whether a response status is worth retrying.
func retryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}
