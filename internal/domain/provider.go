package domain

import "context"

// GenerateRequest is sent to a model provider.
type GenerateRequest struct {
	Model       string     `json:"model"`
	Turns       []Turn     `json:"turns"`
	Tools       []ToolSpec `json:"tools,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
}

// GenerateResponse is returned from a model provider.
type GenerateResponse struct {
	Model      string      `json:"model"`
	Candidates []Candidate `json:"candidates"`
	Usage      Usage       `json:"usage"`
}

// ModelProvider is the interface for the generative model backend.
type ModelProvider interface {
	// Generate submits the conversation and tool catalog and returns the
	// model's candidates.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	// Name returns the provider's identifier (e.g., "gemini").
	Name() string
}
