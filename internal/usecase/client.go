package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/metrics"
	"mcpchat/internal/infra/tracer"
)

// ClientState is the lifecycle state of a Client.
type ClientState int

const (
	ClientUninitialized ClientState = iota
	ClientReady
	ClientClosed
)

func (s ClientState) String() string {
	switch s {
	case ClientUninitialized:
		return "UNINITIALIZED"
	case ClientReady:
		return "READY"
	case ClientClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("ClientState(%d)", int(s))
	}
}

// ClientDeps holds injected dependencies for a Client.
type ClientDeps struct {
	Transport         domain.ToolTransport
	Provider          domain.ModelProvider
	Logger            *slog.Logger
	Model             string
	Temperature       *float64                   // optional, nil = backend default
	ValidateArguments bool                       // check tool arguments against input schemas
	Metrics           *metrics.Metrics           // optional, nil = no metrics
	OnStateChange     func(from, to ClientState) // optional
	OnTransition      func(from, to LoopState)   // optional, passed to each query's loop
}

// release is one entry of the teardown stack.
type release struct {
	name string
	fn   func() error
}

// Client owns one tool server session and answers queries over it.
// Queries are serialized; a Client is not meant for concurrent conversations.
type Client struct {
	deps ClientDeps

	mu       sync.Mutex
	state    ClientState
	endpoint domain.Endpoint
	releases []release
	adapter  *SessionAdapter
	tools    []domain.ToolSpec
}

// NewClient creates an unconnected client.
func NewClient(deps ClientDeps) *Client {
	return &Client{deps: deps}
}

// State returns the current lifecycle state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tools returns the translated catalog of the connected server.
func (c *Client) Tools() []domain.ToolSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ToolSpec(nil), c.tools...)
}

// ToolNames returns the catalog's tool names in server order.
func (c *Client) ToolNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.tools))
	for i, t := range c.tools {
		names[i] = t.Name
	}
	return names
}

func (c *Client) setState(to ClientState) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.deps.Logger.Debug("client state changed", "from", from.String(), "to", to.String())
	if c.deps.OnStateChange != nil {
		c.deps.OnStateChange(from, to)
	}
}

func (c *Client) push(name string, fn func() error) {
	c.releases = append(c.releases, release{name: name, fn: fn})
}

// Connect dials ep, opens and initializes a session and loads the tool
// catalog. On failure the client stays unready; whatever was opened is
// released by Cleanup.
func (c *Client) Connect(ctx context.Context, ep domain.Endpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case ClientClosed:
		return domain.NewDomainError("Client.Connect", domain.ErrClientClosed, "")
	case ClientReady:
		return domain.NewDomainError("Client.Connect", domain.ErrAlreadyUsed, c.endpoint.String())
	}
	if len(c.releases) > 0 {
		// Leftovers of a failed attempt.
		c.unwind()
	}

	ctx, span := tracer.StartSpan(ctx, "client.connect",
		trace.WithAttributes(
			tracer.StringAttr("mcp.transport", ep.Transport.Label()),
			tracer.StringAttr("mcp.endpoint", ep.String()),
		),
	)
	defer span.End()

	err := c.connect(ctx, ep)
	c.deps.Metrics.ObserveConnect(ep.Transport.Label(), err == nil)
	if err != nil {
		tracer.RecordError(span, err)
		c.deps.Logger.Error("connect failed",
			"endpoint", ep.String(), "transport", ep.Transport.Label(), "error", err)
		return domain.WrapOp("Client.Connect", err)
	}

	c.endpoint = ep
	c.setState(ClientReady)
	tracer.SetOK(span)
	c.deps.Logger.Info("connected to tool server",
		"endpoint", ep.String(), "transport", ep.Transport.Label(), "tools", len(c.tools))
	return nil
}

func (c *Client) connect(ctx context.Context, ep domain.Endpoint) error {
	if c.deps.Transport == nil {
		return domain.NewDomainError("Client.Connect", domain.ErrConfiguration, "no tool transport")
	}

	conn, err := c.deps.Transport.Dial(ctx, ep)
	if err != nil {
		return err
	}
	c.push("transport", conn.Close)

	sess, err := conn.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("%w: open session: %w", domain.ErrConnection, err)
	}
	c.push("session", sess.Close)

	if err := sess.Initialize(ctx); err != nil {
		return err
	}

	adapter := NewSessionAdapter(ToolSessionDeps{
		Session:           sess,
		Logger:            c.deps.Logger,
		Metrics:           c.deps.Metrics,
		ValidateArguments: c.deps.ValidateArguments,
	})
	descriptors, err := adapter.ListTools(ctx)
	if err != nil {
		return err
	}

	c.adapter = adapter
	c.tools = TranslateTools(descriptors)
	return nil
}

// Query runs one conversation against the connected server.
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case ClientClosed:
		return "", domain.NewDomainError("Client.Query", domain.ErrClientClosed, "")
	case ClientUninitialized:
		return "", domain.NewDomainError("Client.Query", domain.ErrNotReady, "not connected")
	}

	id := newQueryID(time.Now())
	logger := c.deps.Logger.With("query_id", id)

	ctx, span := tracer.StartSpan(ctx, "client.query",
		trace.WithAttributes(tracer.StringAttr("query.id", id)),
	)
	defer span.End()

	engine := NewEngine(LoopDeps{
		Provider:     c.deps.Provider,
		Tools:        c.adapter,
		Logger:       logger,
		Model:        c.deps.Model,
		Temperature:  c.deps.Temperature,
		Metrics:      c.deps.Metrics,
		OnTransition: c.deps.OnTransition,
	})

	start := time.Now()
	answer, err := engine.Run(ctx, query, c.tools)
	if err != nil {
		tracer.RecordError(span, err)
		logger.Error("query failed", "error", err)
		return "", domain.WrapOp("Client.Query", err)
	}

	tracer.SetOK(span)
	logger.Info("query completed", "duration", time.Since(start), "answer_len", len(answer))
	return answer, nil
}

// Cleanup releases the session and then the transport, whichever were
// opened. It is idempotent and always leaves the client CLOSED.
func (c *Client) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == ClientClosed {
		return nil
	}

	_, span := tracer.StartSpan(ctx, "client.cleanup")
	defer span.End()

	err := c.unwind()
	c.adapter = nil
	c.tools = nil
	c.setState(ClientClosed)

	if err != nil {
		tracer.RecordError(span, err)
		return domain.WrapOp("Client.Cleanup", err)
	}
	tracer.SetOK(span)
	return nil
}

// unwind pops the release stack, innermost first. Every entry runs even when
// an earlier one fails.
func (c *Client) unwind() error {
	var errs []error
	for i := len(c.releases) - 1; i >= 0; i-- {
		r := c.releases[i]
		if err := r.fn(); err != nil {
			c.deps.Logger.Warn("release failed", "resource", r.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", r.name, err))
			continue
		}
		c.deps.Logger.Debug("released", "resource", r.name)
	}
	c.releases = nil
	return errors.Join(errs...)
}

func newQueryID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
