package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Client.Connect", ErrConnection, "http://localhost:8080/sse")
	want := "Client.Connect: http://localhost:8080/sse: connection error"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Client.Query", ErrNotReady, "")
	want := "Client.Query: client not ready"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Session.ListTools", ErrConnection, "not initialized")
	if !errors.Is(err, ErrConnection) {
		t.Error("errors.Is should match ErrConnection")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDomainError("Gemini.Generate", ErrModelAPI, "status 500"))
	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Gemini.Generate", de.Op)
	assert.Equal(t, CodeModelAPI, de.Code())
}

func TestWrapOpNil(t *testing.T) {
	assert.NoError(t, WrapOp("noop", nil))
	err := WrapOp("initialize", ErrConnection)
	assert.EqualError(t, err, "initialize: connection error")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"unknown", errors.New("boom"), CodeUnknown},
		{"configuration", ErrConfiguration, CodeConfiguration},
		{"connection wrapped", fmt.Errorf("dial: %w", ErrConnection), CodeConnection},
		{"tool", ErrToolInvocation, CodeToolInvocation},
		{"model", ErrModelAPI, CodeModelAPI},
		{"refinement wins over category", fmt.Errorf("%w: %w", ErrModelAPI, ErrRateLimit), CodeRateLimit},
		{"not ready", NewDomainError("Client.Query", ErrNotReady, ""), CodeNotReady},
		{"closed", ErrClientClosed, CodeClientClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeOf(tt.err))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("%w: %w", ErrModelAPI, ErrRateLimit)))
	assert.True(t, IsRetryableError(ErrCircuitOpen))
	assert.False(t, IsRetryableError(ErrAuthInvalid))
	assert.False(t, IsRetryableError(nil))
}

func TestToolCallError(t *testing.T) {
	cause := errors.New("slow")
	err := fmt.Errorf("call: %w", &ToolCallError{Tool: "slow_tool", Err: cause})

	if !errors.Is(err, ErrToolInvocation) {
		t.Error("expected ErrToolInvocation in chain")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	var tce *ToolCallError
	if !errors.As(err, &tce) || tce.Error() != "slow" || tce.Tool != "slow_tool" {
		t.Errorf("unexpected ToolCallError: %+v", tce)
	}
	if got := ErrorCodeOf(err); got != CodeToolInvocation {
		t.Errorf("code = %s, want %s", got, CodeToolInvocation)
	}
}
