package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"readiness-backend/internal/llm"
	"readiness-backend/internal/shared/telemetry"
)

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client on the Gemini API.
type Client struct {
	models contentGenerator
	model  string
}

// NewClient constructs a Gemini client for the given API key.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		cfg.HTTPOptions = genai.HTTPOptions{Timeout: &timeout}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{models: client.Models, model: model}, nil
}

// Generate sends a single-turn prompt and returns the concatenated text parts.
func (c *Client) Generate(ctx context.Context, prompt string, params llm.Params) (string, error) {
	if c.models == nil {
		return "", errors.New("gemini client not initialized")
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(params.Temperature),
		TopP:             genai.Ptr(params.TopP),
		MaxOutputTokens:  int32(params.MaxOutputTokens),
		ResponseMIMEType: "application/json",
	}
	if params.TopK > 0 {
		config.TopK = genai.Ptr(float32(params.TopK))
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini request timeout: %w", err)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini response missing candidates")
	}
	logUsage(c.model, resp)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := ""
		if resp.Candidates[0] != nil {
			reason = string(resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("gemini response empty content finish_reason=%s", reason)
	}
	return text, nil
}

func logUsage(model string, resp *genai.GenerateContentResponse) {
	fields := map[string]any{"provider": "gemini", "model": model}
	if u := resp.UsageMetadata; u != nil {
		fields["prompt_tokens"] = u.PromptTokenCount
		fields["completion_tokens"] = u.CandidatesTokenCount
		fields["total_tokens"] = u.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Client = (*Client)(nil)
