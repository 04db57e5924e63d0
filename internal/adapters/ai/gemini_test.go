package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubModels struct {
	text   string
	err    error
	config *genai.GenerateContentConfig
	model  string
}

func (s *stubModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.model = model
	s.config = config
	if s.err != nil {
		return nil, s.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(s.text, genai.RoleModel),
		}},
	}, nil
}

func TestGeminiGenerator_Generate(t *testing.T) {
	stub := &stubModels{text: "  {\"recommendations\": []}  "}
	g := newGenerator(stub, "", 0, 0)

	out, err := g.Generate(context.Background(), "recommend", domain.GenerateOptions{
		System: "You are a wellness coach.", JSON: true, MaxTokens: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"recommendations": []}`, out)
	assert.Equal(t, defaultModel, stub.model)
	assert.Equal(t, "application/json", stub.config.ResponseMIMEType)
	assert.EqualValues(t, 1000, stub.config.MaxOutputTokens)
	require.NotNil(t, stub.config.SystemInstruction)
}

func TestGeminiGenerator_ErrorsAreExternal(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		g := newGenerator(&stubModels{err: errors.New("quota exceeded")}, "m", 0, 0)
		_, err := g.Generate(context.Background(), "p", domain.GenerateOptions{})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("empty text", func(t *testing.T) {
		g := newGenerator(&stubModels{text: "   "}, "m", 0, 0)
		_, err := g.Generate(context.Background(), "p", domain.GenerateOptions{})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("unavailable", func(t *testing.T) {
		_, err := Unavailable{}.Generate(context.Background(), "p", domain.GenerateOptions{})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "", 0, 0)
	assert.Error(t, err)
}
