package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"mcpchat/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Unwrap classifies every validation failure as a configuration error.
func (v *ValidationError) Unwrap() error { return domain.ErrConfiguration }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
// The API key is not checked here: its absence is reported when the model
// provider is constructed.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLLM(cfg, ve)
	validateServer(cfg, ve)
	validateClient(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateMetrics(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validProviderTypes = map[string]bool{
	"gemini": true,
}

func validateLLM(cfg *Config, ve *ValidationError) {
	l := cfg.LLM
	if !validProviderTypes[l.Provider] {
		ve.Add("llm.provider %q is not supported (want gemini)", l.Provider)
	}
	if l.Model == "" {
		ve.Add("llm.model must not be empty")
	}
	if l.BaseURL != "" {
		if u, err := url.Parse(l.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			ve.Add("llm.base_url %q must be an http(s) URL", l.BaseURL)
		}
	}
	if l.ConnTimeout < 0 {
		ve.Add("llm.conn_timeout must be >= 0")
	}
	if l.RespTimeout < 0 {
		ve.Add("llm.resp_timeout must be >= 0")
	}
	if l.MaxRetries < 0 {
		ve.Add("llm.max_retries must be >= 0")
	}
	if l.RequestsPerMinute < 0 {
		ve.Add("llm.requests_per_minute must be >= 0")
	}
	if l.RequestsPerMinute > 0 && l.Burst <= 0 {
		ve.Add("llm.burst must be > 0 when requests_per_minute is set")
	}
	if l.Temperature != nil && (*l.Temperature < 0 || *l.Temperature > 2) {
		ve.Add("llm.temperature must be within [0, 2]")
	}
	if l.CircuitBreaker.Timeout < 0 || l.CircuitBreaker.Interval < 0 {
		ve.Add("llm.circuit_breaker durations must be >= 0")
	}
}

func validateServer(cfg *Config, ve *ValidationError) {
	switch domain.TransportKind(cfg.Server.Transport) {
	case domain.TransportSSE, domain.TransportHTTP:
	default:
		ve.Add("server.transport %q must be sse or http", cfg.Server.Transport)
	}

	seen := make(map[string]bool, len(cfg.Server.Servers))
	for i, srv := range cfg.Server.Servers {
		if srv.Name == "" {
			ve.Add("server.servers[%d].name must not be empty", i)
			continue
		}
		if seen[srv.Name] {
			ve.Add("server.servers: duplicate name %q", srv.Name)
		}
		seen[srv.Name] = true

		kind := domain.TransportKind(srv.Transport)
		switch {
		case !kind.Valid():
			ve.Add("server %q: transport %q must be sse, http or stdio", srv.Name, srv.Transport)
		case kind == domain.TransportStdio && srv.Command == "":
			ve.Add("server %q: stdio transport requires command", srv.Name)
		case kind != domain.TransportStdio:
			u, err := url.Parse(srv.URL)
			if srv.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				ve.Add("server %q: %s transport requires an http(s) url", srv.Name, kind)
			}
		}
	}
}

func validateClient(cfg *Config, ve *ValidationError) {
	if cfg.Client.Name == "" {
		ve.Add("client.name must not be empty")
	}
	if cfg.Client.CallTimeout < 0 {
		ve.Add("client.call_timeout must be >= 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not recognized", cfg.Logger.Level)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q must be stdout or noop", cfg.Tracer.Exporter)
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if !cfg.Metrics.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
		ve.Add("metrics.addr %q must be host:port", cfg.Metrics.Addr)
	}
}
