// Package ai adapts Gemini text generation to domain.TextGenerator.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// models abstracts the genai Models service so tests can stub it.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiGenerator struct {
	models  models
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGeminiGenerator creates a throttled Gemini client. rps <= 0 disables throttling.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration, rps float64) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGenerator(client.Models, model, timeout, rps), nil
}

func newGenerator(m models, model string, timeout time.Duration, rps float64) *GeminiGenerator {
	if model == "" {
		model = defaultModel
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &GeminiGenerator{
		models:  m,
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (g *GeminiGenerator) Model() string {
	return g.model
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](1)}
	if opts.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.System, genai.RoleUser)
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate failed: %v", domain.ErrExternalService, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response from gemini", domain.ErrExternalService)
	}
	return text, nil
}

// Unavailable is used when no API key is configured. Every call fails so callers
// take their deterministic fallback.
type Unavailable struct{}

func (Unavailable) Model() string { return "none" }

func (Unavailable) Generate(context.Context, string, domain.GenerateOptions) (string, error) {
	return "", fmt.Errorf("%w: text generation is not configured", domain.ErrExternalService)
}
