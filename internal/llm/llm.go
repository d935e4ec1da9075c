package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers used by the analysis gateway.
type Client interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// Params are the sampling settings sent with a single generation.
type Params struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

var (
	// CategoryParams apply to the four per-category stages.
	CategoryParams = Params{Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 1024}
	// OverallParams apply to the overall synthesis stage.
	OverallParams = Params{Temperature: 0.8, TopP: 0.95, TopK: 40, MaxOutputTokens: 1024}
	// ReportParams apply to the consolidated and resume document stages.
	ReportParams = Params{Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048}
)

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is used when no provider is configured. Every call fails,
// so callers always receive their fallback results.
type PlaceholderClient struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	_ = ctx
	_ = prompt
	_ = params
	return "", ErrNotConfigured
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string, params Params) (string, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return f(ctx, prompt, params)
}
