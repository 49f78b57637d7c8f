package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"mcpchat/internal/domain"
)

// Session is a protocol session over a Connection. It implements
// domain.ToolSession. Closing the session does not close the transport.
type Session struct {
	client      mcpClient
	endpoint    domain.Endpoint
	clientInfo  mcplib.Implementation
	callTimeout time.Duration
	logger      *slog.Logger

	mu          sync.Mutex
	initialized bool
	closed      bool
}

// Initialize performs the MCP handshake.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.NewDomainError("Session.Initialize", domain.ErrConnection, "session closed")
	}

	req := mcplib.InitializeRequest{}
	req.Params.ProtocolVersion = mcplib.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = s.clientInfo

	res, err := s.client.Initialize(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: initialize: %w", domain.ErrConnection, err)
	}
	s.initialized = true

	s.logger.Info("mcp session initialized",
		"endpoint", s.endpoint.String(),
		"server", res.ServerInfo.Name,
		"server_version", res.ServerInfo.Version,
		"protocol", res.ProtocolVersion,
	)
	return nil
}

func (s *Session) ready(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return domain.NewDomainError(op, domain.ErrConnection, "session closed")
	case !s.initialized:
		return domain.NewDomainError(op, domain.ErrConnection, "session not initialized")
	}
	return nil
}

// ListTools fetches the server's tool catalog.
func (s *Session) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	if err := s.ready("Session.ListTools"); err != nil {
		return nil, err
	}

	res, err := s.client.ListTools(ctx, mcplib.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: list tools: %w", domain.ErrConnection, err)
	}

	tools := make([]domain.ToolDescriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, domain.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: decodeSchema(t),
		})
	}
	return tools, nil
}

// CallTool invokes a remote tool. A transport failure is returned as an
// error; a result the server flagged as an error is returned with IsError set.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*domain.CallResult, error) {
	if err := s.ready("Session.CallTool"); err != nil {
		return nil, err
	}

	req := mcplib.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, &domain.ToolCallError{Tool: name, Err: err}
	}

	return &domain.CallResult{
		Content: decodeContent(res.Content),
		Text:    extractText(res.Content),
		IsError: res.IsError,
	}, nil
}

// Close marks the session unusable.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// decodeSchema converts the tool's input schema into plain JSON values. A
// raw schema, when the server sent one, is preferred over the typed form.
func decodeSchema(t mcplib.Tool) any {
	var data []byte
	if len(t.RawInputSchema) > 0 {
		data = t.RawInputSchema
	} else {
		b, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil
		}
		data = b
	}

	var schema any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil
	}
	return schema
}

// decodeContent turns MCP content blocks into plain JSON values, the shape
// the model receives as the tool result.
func decodeContent(content []mcplib.Content) []any {
	out := make([]any, 0, len(content))
	for _, c := range content {
		data, err := json.Marshal(c)
		if err != nil {
			continue
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// extractText joins the text blocks of a result.
func extractText(content []mcplib.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case mcplib.TextContent:
			parts = append(parts, v.Text)
		case *mcplib.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ domain.ToolSession = (*Session)(nil)
