package ports

import "context"

// Generator is the external text generation capability.
//
// Implementations must wrap transient failures (overload, rate limiting, timeouts) with
// domain.ErrGeneratorUnavailable so callers can retry them. Any other error is treated
// as fatal for the turn.
type Generator interface {
	// Generate returns the raw model output for prompt. The output is expected to be JSON.
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt).
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
