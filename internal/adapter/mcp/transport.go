// Package mcp connects to Model Context Protocol tool servers over SSE,
// streamable HTTP or stdio using mcp-go.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/config"
)

// mcpClient abstracts the mcp-go client for testability.
type mcpClient interface {
	Initialize(ctx context.Context, request mcplib.InitializeRequest) (*mcplib.InitializeResult, error)
	ListTools(ctx context.Context, request mcplib.ListToolsRequest) (*mcplib.ListToolsResult, error)
	CallTool(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error)
	Close() error
}

type dialFunc func(ctx context.Context, ep domain.Endpoint) (mcpClient, error)

// Transport dials tool servers. It implements domain.ToolTransport.
type Transport struct {
	clientInfo  mcplib.Implementation
	callTimeout time.Duration
	logger      *slog.Logger
	dial        dialFunc
}

// NewTransport creates a Transport that announces itself with the client name
// and version from cfg.
func NewTransport(cfg config.ClientConfig, logger *slog.Logger) *Transport {
	return &Transport{
		clientInfo:  mcplib.Implementation{Name: cfg.Name, Version: cfg.Version},
		callTimeout: cfg.CallTimeout,
		logger:      logger,
		dial:        dialClient,
	}
}

// Dial opens the transport to ep. For SSE and streamable HTTP the stream is
// started; for stdio the server process is spawned.
func (t *Transport) Dial(ctx context.Context, ep domain.Endpoint) (domain.ToolConnection, error) {
	c, err := t.dial(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", domain.ErrConnection, ep, err)
	}
	t.logger.Debug("mcp transport opened", "endpoint", ep.String(), "transport", ep.Transport.Label())
	return &Connection{
		client:      c,
		endpoint:    ep,
		clientInfo:  t.clientInfo,
		callTimeout: t.callTimeout,
		logger:      t.logger,
	}, nil
}

func dialClient(ctx context.Context, ep domain.Endpoint) (mcpClient, error) {
	switch ep.Transport {
	case domain.TransportStdio:
		c, err := mcpclient.NewStdioMCPClient(ep.Command, envSlice(ep.Env), ep.Args...)
		if err != nil {
			return nil, fmt.Errorf("start stdio server: %w", err)
		}
		return c, nil
	case domain.TransportHTTP:
		tr, err := transport.NewStreamableHTTP(ep.URL, transport.WithHTTPHeaders(ep.Headers))
		if err != nil {
			return nil, fmt.Errorf("create http transport: %w", err)
		}
		return startClient(ctx, mcpclient.NewClient(tr))
	case domain.TransportSSE, "":
		tr, err := transport.NewSSE(ep.URL, transport.WithHeaders(ep.Headers))
		if err != nil {
			return nil, fmt.Errorf("create sse transport: %w", err)
		}
		return startClient(ctx, mcpclient.NewClient(tr))
	default:
		return nil, fmt.Errorf("unsupported transport %q", ep.Transport)
	}
}

func startClient(ctx context.Context, c *mcpclient.Client) (mcpClient, error) {
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("start client: %w", err)
	}
	return c, nil
}

// Connection is an open transport to one tool server. It implements
// domain.ToolConnection.
type Connection struct {
	client      mcpClient
	endpoint    domain.Endpoint
	clientInfo  mcplib.Implementation
	callTimeout time.Duration
	logger      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenSession returns a session over the connection. The session must be
// initialized before use.
func (c *Connection) OpenSession(_ context.Context) (domain.ToolSession, error) {
	return &Session{
		client:      c.client,
		endpoint:    c.endpoint,
		clientInfo:  c.clientInfo,
		callTimeout: c.callTimeout,
		logger:      c.logger,
	}, nil
}

// Close shuts the transport down. Safe to call more than once.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.client.Close()
		c.logger.Debug("mcp transport closed", "endpoint", c.endpoint.String())
	})
	return c.closeErr
}

// envSlice converts a map of env vars to sorted KEY=VALUE pairs.
func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

var (
	_ domain.ToolTransport  = (*Transport)(nil)
	_ domain.ToolConnection = (*Connection)(nil)
)
