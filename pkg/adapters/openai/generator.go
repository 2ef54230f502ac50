// Package openai implements ports.Generator on top of the OpenAI Responses API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Generator asks an OpenAI model for a JSON turn response using structured outputs.
type Generator struct {
	client *openai.Client
	model  string
	format responses.ResponseFormatTextConfigUnionParam
	logger *slog.Logger
}

// Option configures the Generator.
type Option func(*generatorConfig)

type generatorConfig struct {
	model          string
	logger         *slog.Logger
	requestOptions []option.RequestOption
}

// WithModel selects the model name.
func WithModel(model string) Option {
	return func(c *generatorConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *generatorConfig) {
		c.logger = logger
	}
}

// WithBaseURL points the client at a different endpoint (proxies, tests).
func WithBaseURL(url string) Option {
	return func(c *generatorConfig) {
		c.requestOptions = append(c.requestOptions, option.WithBaseURL(url))
	}
}

// New creates a Generator. The SDK's own retries are disabled; the orchestrator's
// retry policy is the only one in play.
func New(apiKey string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrGeneratorFatal)
	}

	cfg := &generatorConfig{model: DefaultModel, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	schema, err := ResponseSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build response schema: %w", err)
	}

	requestOptions := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, cfg.requestOptions...)
	client := openai.NewClient(requestOptions...)

	return &Generator{
		client: &client,
		model:  cfg.model,
		logger: cfg.logger,
		format: responses.ResponseFormatTextConfigUnionParam{
			OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
				Name:        "SteveTurn",
				Schema:      schema,
				Strict:      openai.Bool(true),
				Description: openai.String("Steve's next state and line of dialogue"),
				Type:        "json_schema",
			},
		},
	}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate implements ports.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: g.format,
		},
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	text := resp.OutputText()
	if text == "" {
		g.logger.Warn("OpenAI returned no output text", "model", g.model, "response_id", resp.ID)
	}
	return text, nil
}

// classify maps SDK errors onto the domain taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrGeneratorFatal, err)
}
