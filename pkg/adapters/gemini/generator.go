// Package gemini implements ports.Generator on top of the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/pkg/domain"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// ContentGenerator is the slice of the SDK the generator needs. *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator asks a Gemini model for a JSON turn response.
type Generator struct {
	models ContentGenerator
	model  string
	config *genai.GenerateContentConfig
	logger *slog.Logger
}

// Option configures the Generator.
type Option func(*Generator)

// WithModel selects the model name.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New creates a Generator backed by the Gemini API.
func New(ctx context.Context, apiKey string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", domain.ErrGeneratorFatal)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return NewWithModels(client.Models, opts...), nil
}

// NewWithModels creates a Generator over an existing content generator.
func NewWithModels(models ContentGenerator, opts ...Option) *Generator {
	g := &Generator{
		models: models,
		model:  DefaultModel,
		config: GenerationConfig(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate implements ports.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", classify(err)
	}

	text := resp.Text()
	if text == "" {
		// Blocked or empty candidates; there is nothing a retry would fix.
		g.logger.Warn("Gemini returned no text", "model", g.model)
	}
	return text, nil
}

// GenerationConfig requests JSON that matches the turn response shape, with safety filters off.
func GenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
}

func responseSchema() *genai.Schema {
	states := make([]string, len(domain.NarrativeStates))
	for i, s := range domain.NarrativeStates {
		states[i] = string(s)
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"newState": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"steveState":          {Type: genai.TypeString, Enum: states},
					"loopCount":           {Type: genai.TypeInteger},
					"conversationSummary": {Type: genai.TypeString},
					"lastUserSuggestion":  {Type: genai.TypeString},
				},
				Required: []string{"steveState", "loopCount", "conversationSummary", "lastUserSuggestion"},
			},
			"dialogue": {Type: genai.TypeString},
			"visualState": {
				Type: genai.TypeString,
				Enum: []string{
					string(domain.VisualDim),
					string(domain.VisualConsidering),
					string(domain.VisualBright),
					string(domain.VisualDark),
				},
			},
		},
		Required: []string{"newState", "dialogue", "visualState"},
	}
}

// classify maps SDK errors onto the domain taxonomy.
// Overload, rate limiting and server errors are transient; everything else is fatal.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}

	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrGeneratorFatal, err)
	}
}
