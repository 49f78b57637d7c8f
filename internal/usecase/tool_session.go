package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kaptinlin/jsonschema"
	"go.opentelemetry.io/otel/trace"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/metrics"
	"mcpchat/internal/infra/tracer"
)

// ToolSessionDeps holds injected dependencies for a SessionAdapter.
type ToolSessionDeps struct {
	Session           domain.ToolSession
	Logger            *slog.Logger
	Metrics           *metrics.Metrics // optional, nil = no metrics
	ValidateArguments bool             // check call arguments against the declared input schema
}

// SessionAdapter exposes a live tool session to the conversation loop.
// It implements domain.ToolInvoker.
type SessionAdapter struct {
	deps ToolSessionDeps

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewSessionAdapter creates an adapter over deps.Session.
func NewSessionAdapter(deps ToolSessionDeps) *SessionAdapter {
	return &SessionAdapter{deps: deps, schemas: make(map[string]*jsonschema.Schema)}
}

// ListTools fetches the remote tool catalog.
func (a *SessionAdapter) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	if a.deps.Session == nil {
		return nil, domain.NewDomainError("SessionAdapter.ListTools", domain.ErrConnection, "session not initialized")
	}
	tools, err := a.deps.Session.ListTools(ctx)
	if err != nil {
		return nil, domain.WrapOp("SessionAdapter.ListTools", err)
	}
	if a.deps.ValidateArguments {
		a.compileSchemas(tools)
	}
	return tools, nil
}

// compileSchemas caches a validator per tool. Schemas that fail to compile
// are skipped; calls to those tools go through unchecked.
func (a *SessionAdapter) compileSchemas(tools []domain.ToolDescriptor) {
	compiled := make(map[string]*jsonschema.Schema, len(tools))
	for _, t := range tools {
		if t.InputSchema == nil {
			continue
		}
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			continue
		}
		schema, err := jsonschema.NewCompiler().Compile(raw)
		if err != nil {
			a.deps.Logger.Warn("tool schema not compilable, arguments unchecked", "tool", t.Name, "error", err)
			continue
		}
		compiled[t.Name] = schema
	}

	a.mu.Lock()
	a.schemas = compiled
	a.mu.Unlock()
}

func (a *SessionAdapter) validate(name string, args map[string]any) error {
	a.mu.RLock()
	schema, ok := a.schemas[name]
	a.mu.RUnlock()
	if !ok {
		return nil
	}

	data := map[string]any{}
	for k, v := range args {
		data[k] = v
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, result.Error())
	}
	return nil
}

// Invoke calls the named tool. It never fails: transport errors, remote
// error results and rejected arguments all become failure outcomes.
func (a *SessionAdapter) Invoke(ctx context.Context, name string, args map[string]any) domain.ToolOutcome {
	ctx, span := tracer.StartSpan(ctx, "tool.invoke",
		trace.WithAttributes(tracer.StringAttr("tool.name", name)),
	)
	defer span.End()

	start := time.Now()
	outcome, err := a.invoke(ctx, name, args)
	a.deps.Metrics.ObserveTool(name, outcome.OK, time.Since(start))

	if err != nil {
		tracer.RecordError(span, err)
		a.deps.Logger.Warn("tool call failed", "tool", name, "error", err)
		return outcome
	}
	if !outcome.OK {
		span.SetAttributes(tracer.BoolAttr("tool.is_error", true))
		a.deps.Logger.Warn("tool returned error result", "tool", name, "error", outcome.Error)
		return outcome
	}

	tracer.SetOK(span)
	a.deps.Logger.Debug("tool call completed", "tool", name, "duration", time.Since(start))
	return outcome
}

func (a *SessionAdapter) invoke(ctx context.Context, name string, args map[string]any) (domain.ToolOutcome, error) {
	if a.deps.Session == nil {
		err := domain.NewDomainError("SessionAdapter.Invoke", domain.ErrConnection, "session not initialized")
		return domain.ToolFailure(err.Error()), err
	}
	if err := a.validate(name, args); err != nil {
		return domain.ToolFailure(err.Error()), err
	}

	res, err := a.deps.Session.CallTool(ctx, name, args)
	if err != nil {
		return domain.ToolFailure(failureMessage(err)), err
	}
	if res.IsError {
		msg := res.Text
		if strings.TrimSpace(msg) == "" {
			msg = fmt.Sprintf("tool %s reported an error", name)
		}
		return domain.ToolFailure(msg), nil
	}
	return domain.ToolSuccess(res.Content), nil
}

// failureMessage is the text the model sees for a failed call: the raw cause
// for remote call errors, the full chain otherwise.
func failureMessage(err error) string {
	var callErr *domain.ToolCallError
	if errors.As(err, &callErr) {
		return callErr.Error()
	}
	return err.Error()
}

var _ domain.ToolInvoker = (*SessionAdapter)(nil)
