package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"mcpchat/internal/domain"
)

// --- Mocks ---

type mockProvider struct {
	mu        sync.Mutex
	responses []domain.GenerateResponse
	errs      []error // indexed like responses; a non-nil entry fails that call
	requests  []domain.GenerateRequest
}

func (m *mockProvider) Generate(_ context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx >= len(m.responses) {
		return &domain.GenerateResponse{Candidates: []domain.Candidate{{Parts: []domain.Part{domain.TextPart("fallback")}}}}, nil
	}
	return new(m.responses[idx]), nil
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// textResponse builds a single-candidate response of text parts.
func textResponse(texts ...string) domain.GenerateResponse {
	parts := make([]domain.Part, len(texts))
	for i, t := range texts {
		parts[i] = domain.TextPart(t)
	}
	return domain.GenerateResponse{Candidates: []domain.Candidate{{Parts: parts}}}
}

// callResponse builds a single-candidate response holding the given parts.
func callResponse(parts ...domain.Part) domain.GenerateResponse {
	return domain.GenerateResponse{Candidates: []domain.Candidate{{Parts: parts}}}
}

type invocation struct {
	name string
	args map[string]any
}

// mockInvoker records invocations and answers from a table.
type mockInvoker struct {
	outcomes map[string]domain.ToolOutcome
	invoked  []invocation
}

func (m *mockInvoker) Invoke(_ context.Context, name string, args map[string]any) domain.ToolOutcome {
	m.invoked = append(m.invoked, invocation{name: name, args: args})
	if o, ok := m.outcomes[name]; ok {
		return o
	}
	return domain.ToolFailure("unknown tool " + name)
}

// mockSession is an in-memory tool session.
type mockSession struct {
	tools    []domain.ToolDescriptor
	results  map[string]*domain.CallResult
	callErrs map[string]error
	initErr  error
	listErr  error

	initialized bool
	calls       []invocation
	closeCalls  int
	log         *[]string
}

func (s *mockSession) Initialize(context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = true
	return nil
}

func (s *mockSession) ListTools(context.Context) ([]domain.ToolDescriptor, error) {
	if !s.initialized {
		return nil, domain.NewDomainError("mockSession.ListTools", domain.ErrConnection, "session not initialized")
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tools, nil
}

func (s *mockSession) CallTool(_ context.Context, name string, args map[string]any) (*domain.CallResult, error) {
	s.calls = append(s.calls, invocation{name: name, args: args})
	if err, ok := s.callErrs[name]; ok {
		return nil, &domain.ToolCallError{Tool: name, Err: err}
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return &domain.CallResult{Content: []any{}}, nil
}

func (s *mockSession) Close() error {
	s.closeCalls++
	if s.log != nil {
		*s.log = append(*s.log, "session")
	}
	return nil
}

type mockConnection struct {
	session    *mockSession
	openErr    error
	closeErr   error
	closeCalls int
	log        *[]string
}

func (c *mockConnection) OpenSession(context.Context) (domain.ToolSession, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.session, nil
}

func (c *mockConnection) Close() error {
	c.closeCalls++
	if c.log != nil {
		*c.log = append(*c.log, "transport")
	}
	return c.closeErr
}

type mockTransport struct {
	conn    *mockConnection
	dialErr error
	dialed  []domain.Endpoint
}

func (t *mockTransport) Dial(_ context.Context, ep domain.Endpoint) (domain.ToolConnection, error) {
	t.dialed = append(t.dialed, ep)
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	return t.conn, nil
}

// newMockTransport wires a transport, connection and session that record
// their teardown order in a shared log.
func newMockTransport(sess *mockSession) (*mockTransport, *[]string) {
	var log []string
	sess.log = &log
	conn := &mockConnection{session: sess, log: &log}
	return &mockTransport{conn: conn}, &log
}

var errRefused = errors.New("connection refused")

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
