package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mcpchat/internal/infra/middleware"
)

const namespace = "mcpchat"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// CodeOK is the code label of a successful model call.
const CodeOK = "OK"

// Metrics holds the collectors for one process. All methods are safe on a
// nil receiver so components can run without metrics.
type Metrics struct {
	Registry *prometheus.Registry

	QueriesTotal     *prometheus.CounterVec
	ToolCallsTotal   *prometheus.CounterVec
	ToolDuration     *prometheus.HistogramVec
	ModelCallsTotal  *prometheus.CounterVec
	ModelTokensTotal *prometheus.CounterVec
	Connections      *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries processed, by transport and outcome.",
			},
			[]string{"transport", "outcome"},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Remote tool invocations, by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Remote tool invocation latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_calls_total",
				Help:      "Model round trips, by model and error code.",
			},
			[]string{"model", "code"},
		),
		ModelTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_tokens_total",
				Help:      "Tokens reported by the model backend.",
			},
			[]string{"direction"}, // input | output
		),
		Connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_total",
				Help:      "Tool server connection attempts, by transport and outcome.",
			},
			[]string{"transport", "outcome"},
		),
	}
	m.Registry.MustRegister(
		m.QueriesTotal, m.ToolCallsTotal, m.ToolDuration,
		m.ModelCallsTotal, m.ModelTokensTotal, m.Connections,
		collectors.NewGoCollector(),
	)
	return m
}

func outcome(ok bool) string {
	if ok {
		return OutcomeOK
	}
	return OutcomeError
}

// ObserveQuery counts one processed query.
func (m *Metrics) ObserveQuery(transport string, ok bool) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(transport, outcome(ok)).Inc()
}

// ObserveTool counts one tool invocation and records its latency.
func (m *Metrics) ObserveTool(tool string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome(ok)).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveModel counts one model round trip. code is CodeOK on success or the
// error code of the failure.
func (m *Metrics) ObserveModel(model, code string, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.ModelCallsTotal.WithLabelValues(model, code).Inc()
	if inputTokens > 0 {
		m.ModelTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.ModelTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// ObserveConnect counts one connection attempt.
func (m *Metrics) ObserveConnect(transport string, ok bool) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(transport, outcome(ok)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Mux routes /metrics to the registry behind the listener middleware.
func (m *Metrics) Mux(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", middleware.Chain(m.Handler(),
		middleware.AccessLog(logger),
		middleware.SecurityHeaders,
		middleware.ReadOnly,
	))
	return mux
}

// Serve runs a /metrics listener on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: m.Mux(logger), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
