package domain

import "context"

// GenerateOptions tunes a single text generation call.
type GenerateOptions struct {
	System    string
	JSON      bool
	MaxTokens int
}

// TextGenerator produces text from a prompt, typically through an LLM.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Model() string
}

type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushResult reports per-token delivery. InvalidTokens should be unregistered.
type PushResult struct {
	Success       int
	Failure       int
	InvalidTokens []string
}

type PushSender interface {
	Send(ctx context.Context, tokens []string, msg PushMessage) (PushResult, error)
}

// WeatherProvider describes the current weather at a free-form location.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (string, error)
}
