package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/trace"

	"mcpchat/internal/domain"
	"mcpchat/internal/infra/config"
	"mcpchat/internal/infra/tracer"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultRetryWait     = 500 * time.Millisecond
	defaultRetryMaxWait  = 5 * time.Second
)

// GeminiProvider implements domain.ModelProvider for the Google Gemini
// generateContent API.
type GeminiProvider struct {
	name        string
	model       string
	baseURL     string
	temperature *float64
	client      *resty.Client
	logger      *slog.Logger
}

// GeminiOption customizes a GeminiProvider.
type GeminiOption func(*resty.Client)

// WithRetryWait overrides the backoff bounds between retries.
func WithRetryWait(wait, maxWait time.Duration) GeminiOption {
	return func(c *resty.Client) {
		c.SetRetryWaitTime(wait)
		c.SetRetryMaxWaitTime(maxWait)
	}
}

// NewGeminiProvider creates a provider for the Google Gemini API. A missing
// API key is a configuration error reported before any request is made.
func NewGeminiProvider(cfg config.LLMConfig, logger *slog.Logger, opts ...GeminiOption) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.NewDomainError("NewGeminiProvider", domain.ErrConfiguration,
			config.EnvAPIKey+" is not set")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	client := resty.NewWithClient(newHTTPClient(cfg.ConnTimeout, cfg.RespTimeout)).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && retryableStatus(r.StatusCode())
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			status := 0
			if r != nil {
				status = r.StatusCode()
			}
			logger.Warn("retrying model request", "status", status, "error", err)
		})
	for _, opt := range opts {
		opt(client)
	}

	return &GeminiProvider{
		name:        cfg.Provider,
		model:       cfg.Model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		client:      client,
		logger:      logger,
	}, nil
}

// Generate implements domain.ModelProvider.
func (p *GeminiProvider) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	if req.Temperature == nil {
		req.Temperature = p.temperature
	}

	ctx, span := tracer.StartSpan(ctx, "llm.generate",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
			tracer.IntAttr("llm.turns", len(req.Turns)),
			tracer.IntAttr("llm.tools", len(req.Tools)),
		),
	)
	defer span.End()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, req.Model)

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(toGeminiRequest(req)).
		Post(url)
	if err != nil {
		err = fmt.Errorf("%w: gemini request: %w", domain.ErrModelAPI, err)
		tracer.RecordError(span, err)
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		err := mapHTTPError(resp.StatusCode(), resp.Body())
		tracer.RecordError(span, err)
		return nil, err
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(resp.Body(), &gemResp); err != nil {
		err = fmt.Errorf("%w: unmarshal response: %w", domain.ErrModelAPI, err)
		tracer.RecordError(span, err)
		return nil, err
	}

	if len(gemResp.Candidates) == 0 && gemResp.PromptFeedback != nil && gemResp.PromptFeedback.BlockReason != "" {
		p.logger.Warn("prompt blocked by model", "reason", gemResp.PromptFeedback.BlockReason)
	}

	result := fromGeminiResponse(gemResp, req.Model)
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logGenerateCompleted(p.logger, p.name, result)

	return result, nil
}

// Name implements domain.ModelProvider.
func (p *GeminiProvider) Name() string { return p.name }

// --- Gemini API wire types ---

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	Tools            []geminiTool     `json:"tools,omitempty"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFuncResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFuncResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFuncDecl `json:"functionDeclarations"`
}

type geminiFuncDecl struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	UsageMetadata  *geminiUsage          `json:"usageMetadata,omitempty"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string                `json:"modelVersion,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func toGeminiRequest(req domain.GenerateRequest) geminiRequest {
	gemReq := geminiRequest{Contents: make([]geminiContent, 0, len(req.Turns))}

	for _, turn := range req.Turns {
		gc := geminiContent{Role: turn.Role}
		if turn.Role == domain.RoleTool {
			gc.Role = "function"
		}
		for _, part := range turn.Parts {
			gc.Parts = append(gc.Parts, toGeminiPart(part))
		}
		gemReq.Contents = append(gemReq.Contents, gc)
	}

	if len(req.Tools) > 0 {
		decls := make([]geminiFuncDecl, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, geminiFuncDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		gemReq.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	if req.Temperature != nil {
		gemReq.GenerationConfig = &geminiGenConfig{Temperature: req.Temperature}
	}

	return gemReq
}

func toGeminiPart(part domain.Part) geminiPart {
	switch {
	case part.FunctionCall != nil:
		return geminiPart{FunctionCall: &geminiFunctionCall{
			Name: part.FunctionCall.Name,
			Args: part.FunctionCall.Args,
		}}
	case part.FunctionResponse != nil:
		return geminiPart{FunctionResponse: &geminiFuncResponse{
			Name:     part.FunctionResponse.Name,
			Response: part.FunctionResponse.Response,
		}}
	default:
		return geminiPart{Text: part.Text}
	}
}

func fromGeminiResponse(resp geminiResponse, model string) *domain.GenerateResponse {
	result := &domain.GenerateResponse{Model: model}
	if resp.ModelVersion != "" {
		result.Model = resp.ModelVersion
	}

	if resp.UsageMetadata != nil {
		result.Usage = domain.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	for _, c := range resp.Candidates {
		cand := domain.Candidate{Parts: make([]domain.Part, 0, len(c.Content.Parts))}
		for _, part := range c.Content.Parts {
			// Parts carrying none of text, call or response (executable code,
			// bare signatures) are dropped.
			switch {
			case part.FunctionCall != nil:
				cand.Parts = append(cand.Parts, domain.CallPart(part.FunctionCall.Name, part.FunctionCall.Args))
			case part.FunctionResponse != nil:
				cand.Parts = append(cand.Parts, domain.ResponsePart(part.FunctionResponse.Name, part.FunctionResponse.Response))
			case part.Text != "":
				cand.Parts = append(cand.Parts, domain.TextPart(part.Text))
			}
		}
		result.Candidates = append(result.Candidates, cand)
	}

	return result
}

var _ domain.ModelProvider = (*GeminiProvider)(nil)
