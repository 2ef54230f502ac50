package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	text   string
	err    error
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(f.text, genai.RoleModel)},
		},
	}, nil
}

func TestGenerate(t *testing.T) {
	fake := &fakeModels{text: `{"dialogue": "hey"}`}
	gen := NewWithModels(fake)

	out, err := gen.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"dialogue": "hey"}`, out)
	assert.Equal(t, DefaultModel, fake.model)
	assert.Equal(t, "the prompt", fake.prompt)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
}

func TestGenerate_Model(t *testing.T) {
	fake := &fakeModels{text: "{}"}
	gen := NewWithModels(fake, WithModel("gemini-2.5-pro"), WithModel(""))

	_, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", fake.model)
	assert.Equal(t, "gemini-2.5-pro", gen.Model())
}

func TestGenerate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"Overloaded", genai.APIError{Code: 503, Message: "The model is overloaded"}, domain.ErrGeneratorUnavailable},
		{"RateLimited", &genai.APIError{Code: 429, Message: "quota"}, domain.ErrGeneratorUnavailable},
		{"ServerError", fmt.Errorf("call: %w", genai.APIError{Code: 500}), domain.ErrGeneratorUnavailable},
		{"Timeout", context.DeadlineExceeded, domain.ErrGeneratorUnavailable},
		{"BadKey", genai.APIError{Code: 400, Message: "API key not valid"}, domain.ErrGeneratorFatal},
		{"Forbidden", genai.APIError{Code: 403}, domain.ErrGeneratorFatal},
		{"Transport", errors.New("no such host"), domain.ErrGeneratorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewWithModels(&fakeModels{err: tt.err})
			_, err := gen.Generate(context.Background(), "p")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrGeneratorFatal)
}

func TestGenerationConfig(t *testing.T) {
	cfg := GenerationConfig()

	require.Len(t, cfg.SafetySettings, 4)
	for _, s := range cfg.SafetySettings {
		assert.Equal(t, genai.HarmBlockThresholdBlockNone, s.Threshold)
	}

	require.NotNil(t, cfg.ResponseSchema)
	assert.ElementsMatch(t, []string{"newState", "dialogue", "visualState"}, cfg.ResponseSchema.Required)
	assert.Len(t, cfg.ResponseSchema.Properties["newState"].Properties["steveState"].Enum, 4)
}
