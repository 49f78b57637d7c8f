package domain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// TransportKind names the byte-stream or event-stream carrying the tool protocol.
type TransportKind string

const (
	TransportSSE   TransportKind = "sse"
	TransportHTTP  TransportKind = "http"
	TransportStdio TransportKind = "stdio"
)

// Label returns the display name used in user-facing error messages.
func (k TransportKind) Label() string {
	switch k {
	case TransportSSE, "":
		return "SSE"
	case TransportHTTP:
		return "HTTP"
	case TransportStdio:
		return "stdio"
	default:
		return string(k)
	}
}

// Valid reports whether k is a supported transport.
func (k TransportKind) Valid() bool {
	switch k {
	case TransportSSE, TransportHTTP, TransportStdio:
		return true
	}
	return false
}

// Endpoint describes how to reach one tool server.
type Endpoint struct {
	Name      string            `json:"name,omitempty"`
	Transport TransportKind     `json:"transport"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// String returns a short form suitable for logs. Headers and env are omitted.
func (e Endpoint) String() string {
	if e.Transport == TransportStdio {
		return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	}
	return e.URL
}

const stdioPrefix = "stdio:"

// ParseEndpoint turns a raw endpoint string into an Endpoint.
//
//	http(s)://host/path      -> URL endpoint using defaultTransport (sse or http)
//	sse+http(s)://host/path  -> SSE
//	http+stream://host/path  -> streamable HTTP over http
//	https+stream://host/path -> streamable HTTP over https
//	stdio:command arg...     -> stdio subprocess
func ParseEndpoint(raw string, defaultTransport TransportKind) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("%w: endpoint is empty", ErrConfiguration)
	}
	if defaultTransport == "" || defaultTransport == TransportStdio {
		defaultTransport = TransportSSE
	}

	if strings.HasPrefix(strings.ToLower(raw), stdioPrefix) {
		fields := strings.Fields(raw[len(stdioPrefix):])
		if len(fields) == 0 {
			return Endpoint{}, fmt.Errorf("%w: stdio endpoint has no command", ErrConfiguration)
		}
		return Endpoint{Transport: TransportStdio, Command: fields[0], Args: fields[1:]}, nil
	}

	transport := defaultTransport
	lowered := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lowered, "sse+"):
		transport = TransportSSE
		raw = raw[len("sse+"):]
	case strings.HasPrefix(lowered, "http+stream://"):
		transport = TransportHTTP
		raw = "http://" + raw[len("http+stream://"):]
	case strings.HasPrefix(lowered, "https+stream://"):
		transport = TransportHTTP
		raw = "https://" + raw[len("https+stream://"):]
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: parse endpoint %q: %v", ErrConfiguration, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("%w: endpoint %q must be an http(s) URL or stdio:<command>", ErrConfiguration, raw)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("%w: endpoint %q has no host", ErrConfiguration, raw)
	}
	return Endpoint{Transport: transport, URL: u.String()}, nil
}

// CallResult is the raw answer of a remote tool call.
type CallResult struct {
	// Content holds the decoded content items in server order.
	Content []any
	// Text joins the text items, used as the failure message when IsError is set.
	Text    string
	IsError bool
}

// ToolTransport establishes transport-level connections to tool servers.
type ToolTransport interface {
	Dial(ctx context.Context, ep Endpoint) (ToolConnection, error)
}

// ToolConnection is an open transport. Sessions opened on it do not outlive it.
type ToolConnection interface {
	OpenSession(ctx context.Context) (ToolSession, error)
	Close() error
}

// ToolSession is a protocol session over a ToolConnection.
type ToolSession interface {
	// Initialize performs the protocol handshake.
	Initialize(ctx context.Context) error
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error)
	Close() error
}
