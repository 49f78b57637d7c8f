package domain

import (
	"context"
)

// ToolDescriptor is one entry of a remote tool catalog as the server declares it.
// InputSchema holds the decoded JSON schema; it is usually a map[string]any but
// is kept as any so malformed schemas can travel through untouched.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

// ToolSpec is a ToolDescriptor translated into a model function declaration.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ToolOutcome is the result of one tool invocation. It is always produced:
// failures are carried in Error rather than returned.
type ToolOutcome struct {
	OK      bool   `json:"ok"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToolSuccess builds a successful outcome.
func ToolSuccess(payload any) ToolOutcome {
	return ToolOutcome{OK: true, Payload: payload}
}

// ToolFailure builds a failed outcome carrying msg.
func ToolFailure(msg string) ToolOutcome {
	return ToolOutcome{Error: msg}
}

// Response renders the outcome as the function-response body fed back to the
// model: {"result": payload} on success, {"error": message} on failure.
func (o ToolOutcome) Response() map[string]any {
	if !o.OK {
		return map[string]any{"error": o.Error}
	}
	return map[string]any{"result": o.Payload}
}

// ToolInvoker executes tool calls on behalf of the conversation loop.
type ToolInvoker interface {
	// Invoke runs the named tool. It never fails; errors become failure outcomes.
	Invoke(ctx context.Context, name string, args map[string]any) ToolOutcome
}
