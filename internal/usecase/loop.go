package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/metrics"
	"mcpchat/internal/infra/tracer"
)

// LoopState is a step of the conversation loop.
type LoopState int

const (
	StateInit LoopState = iota
	StateAwaitingModel
	StateToolRequested
	StateToolResolved
	StateDone
)

func (s LoopState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateToolRequested:
		return "TOOL_REQUESTED"
	case StateToolResolved:
		return "TOOL_RESOLVED"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

// LoopDeps holds injected dependencies for the conversation loop.
type LoopDeps struct {
	Provider     domain.ModelProvider
	Tools        domain.ToolInvoker
	Logger       *slog.Logger
	Model        string
	Temperature  *float64                 // optional, nil = backend default
	Metrics      *metrics.Metrics         // optional, nil = no metrics
	OnTransition func(from, to LoopState) // optional, observes every state change
}

// Engine drives one query through model round trips and tool calls.
type Engine struct {
	deps LoopDeps
}

// NewEngine creates a conversation loop engine.
func NewEngine(deps LoopDeps) *Engine {
	return &Engine{deps: deps}
}

// run tracks the state of a single query.
type run struct {
	engine *Engine
	state  LoopState
	tools  []domain.ToolSpec
	user   domain.Turn
	answer []string
}

func (r *run) transition(to LoopState) {
	from := r.state
	r.state = to
	if r.engine.deps.OnTransition != nil {
		r.engine.deps.OnTransition(from, to)
	}
}

// Run answers query, invoking tools from the catalog as the model requests
// them. Each requested tool is resolved with a single follow-up round trip;
// function calls in the follow-up are not executed. Only model failures are
// returned as errors.
func (e *Engine) Run(ctx context.Context, query string, tools []domain.ToolSpec) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "loop.run",
		trace.WithAttributes(tracer.IntAttr("loop.tools", len(tools))),
	)
	defer span.End()

	r := &run{engine: e, state: StateInit, tools: tools, user: domain.UserTurn(query)}

	r.transition(StateAwaitingModel)
	resp, err := e.generate(ctx, []domain.Turn{r.user}, tools)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	calls := 0
	for _, cand := range resp.Candidates {
		for _, part := range cand.Parts {
			if part.FunctionCall == nil {
				if part.IsText() {
					r.answer = append(r.answer, part.Text)
				}
				continue
			}
			calls++
			if err := r.resolve(ctx, part); err != nil {
				tracer.RecordError(span, err)
				return "", err
			}
		}
	}

	r.transition(StateDone)
	span.SetAttributes(tracer.IntAttr("loop.tool_calls", calls))
	tracer.SetOK(span)
	return strings.Join(r.answer, "\n"), nil
}

// resolve executes one function call and folds its outcome into a follow-up
// round trip.
func (r *run) resolve(ctx context.Context, part domain.Part) error {
	e := r.engine
	call := part.FunctionCall

	r.transition(StateToolRequested)
	e.deps.Logger.Info("model requested tool", "tool", call.Name)
	outcome := e.deps.Tools.Invoke(ctx, call.Name, call.Args)
	r.transition(StateToolResolved)

	turns := []domain.Turn{
		r.user,
		{Role: domain.RoleModel, Parts: []domain.Part{part}},
		{Role: domain.RoleTool, Parts: []domain.Part{domain.ResponsePart(call.Name, outcome.Response())}},
	}

	r.transition(StateAwaitingModel)
	follow, err := e.generate(ctx, turns, r.tools)
	if err != nil {
		return err
	}
	if text, ok := firstText(follow); ok {
		r.answer = append(r.answer, text)
	} else {
		e.deps.Logger.Warn("follow-up response had no text", "tool", call.Name)
	}
	return nil
}

// firstText returns the first text fragment of the first candidate.
func firstText(resp *domain.GenerateResponse) (string, bool) {
	if len(resp.Candidates) == 0 {
		return "", false
	}
	for _, p := range resp.Candidates[0].Parts {
		if p.IsText() {
			return p.Text, true
		}
	}
	return "", false
}

func (e *Engine) generate(ctx context.Context, turns []domain.Turn, tools []domain.ToolSpec) (*domain.GenerateResponse, error) {
	resp, err := e.deps.Provider.Generate(ctx, domain.GenerateRequest{
		Model:       e.deps.Model,
		Turns:       turns,
		Tools:       tools,
		Temperature: e.deps.Temperature,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrModelAPI) {
			err = fmt.Errorf("%w: %w", domain.ErrModelAPI, err)
		}
		code := domain.ErrorCodeOf(err)
		e.deps.Metrics.ObserveModel(e.deps.Model, string(code), 0, 0)
		e.deps.Logger.Error("model call failed",
			"model", e.deps.Model,
			"code", code,
			"retryable", domain.IsRetryableError(err),
			"error", err,
		)
		return nil, err
	}
	e.deps.Metrics.ObserveModel(e.deps.Model, metrics.CodeOK, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}
