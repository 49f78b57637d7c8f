package domain

import (
	"errors"
	"fmt"
)

// Query-level error taxonomy. Only ErrToolInvocation is recovered inside the
// conversation loop; the others abort the current query.
var (
	ErrConfiguration  = fmt.Errorf("configuration error")
	ErrConnection     = fmt.Errorf("connection error")
	ErrToolInvocation = fmt.Errorf("tool invocation failed")
	ErrModelAPI       = fmt.Errorf("model api error")
)

// Lifecycle guards.
var (
	ErrNotReady     = fmt.Errorf("client not ready")
	ErrClientClosed = fmt.Errorf("client closed")
	ErrAlreadyUsed  = fmt.Errorf("client already connected")
)

// Model API refinements, always reported wrapped in ErrModelAPI.
var (
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrContextOverflow = fmt.Errorf("context window exceeded")
	ErrCircuitOpen     = fmt.Errorf("circuit open")
)

// Tool refinements.
var (
	ErrInvalidArgument = fmt.Errorf("invalid tool arguments")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Client.Connect")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ToolCallError reports a failed remote tool call. Its message is the
// underlying cause alone; that text is what the model receives.
type ToolCallError struct {
	Tool string
	Err  error
}

func (e *ToolCallError) Error() string { return e.Err.Error() }

func (e *ToolCallError) Unwrap() []error { return []error{ErrToolInvocation, e.Err} }

// IsRetryableError reports whether err is a transient model error that may
// succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category for logs and metrics.
type ErrorCode string

const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeConfiguration   ErrorCode = "CONFIGURATION"
	CodeConnection      ErrorCode = "CONNECTION"
	CodeToolInvocation  ErrorCode = "TOOL_INVOCATION"
	CodeModelAPI        ErrorCode = "MODEL_API"
	CodeNotReady        ErrorCode = "NOT_READY"
	CodeClientClosed    ErrorCode = "CLIENT_CLOSED"
	CodeAlreadyUsed     ErrorCode = "ALREADY_CONNECTED"
	CodeRateLimit       ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid     ErrorCode = "AUTH_INVALID"
	CodeContextOverflow ErrorCode = "CONTEXT_OVERFLOW"
	CodeCircuitOpen     ErrorCode = "CIRCUIT_OPEN"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// errorCodes is ordered from most to least specific so that an error wrapping
// both a refinement and its category (ErrRateLimit inside ErrModelAPI)
// resolves to the refinement.
var errorCodes = []struct {
	sentinel error
	code     ErrorCode
}{
	{ErrRateLimit, CodeRateLimit},
	{ErrAuthInvalid, CodeAuthInvalid},
	{ErrContextOverflow, CodeContextOverflow},
	{ErrCircuitOpen, CodeCircuitOpen},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrNotReady, CodeNotReady},
	{ErrClientClosed, CodeClientClosed},
	{ErrAlreadyUsed, CodeAlreadyUsed},
	{ErrConfiguration, CodeConfiguration},
	{ErrConnection, CodeConnection},
	{ErrToolInvocation, CodeToolInvocation},
	{ErrModelAPI, CodeModelAPI},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It walks the error chain with errors.Is; CodeUnknown if nothing matches.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.sentinel) {
			return ec.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
