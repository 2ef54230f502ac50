package steve

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/ports"
	"github.com/aretw0/steve/pkg/turn"
)

// Engine is the high-level entry point for the library.
// It wraps the turn orchestrator and provides a simplified API for consumers.
type Engine struct {
	orchestrator   *turn.Orchestrator
	retry          *turn.RetryPolicy
	attemptTimeout *time.Duration
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRetryPolicy overrides how transient generator failures are retried.
func WithRetryPolicy(p turn.RetryPolicy) Option {
	return func(e *Engine) {
		e.retry = &p
	}
}

// WithAttemptTimeout bounds every generator call. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.attemptTimeout = &d
	}
}

// New initializes an Engine backed by the given generator.
func New(generator ports.Generator, opts ...Option) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}

	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	turnOpts := []turn.Option{
		turn.WithLifecycleHooks(eng.hooks),
		turn.WithLogger(eng.logger),
	}
	if eng.retry != nil {
		turnOpts = append(turnOpts, turn.WithRetryPolicy(*eng.retry))
	}
	if eng.attemptTimeout != nil {
		turnOpts = append(turnOpts, turn.WithAttemptTimeout(*eng.attemptTimeout))
	}

	eng.orchestrator = turn.New(generator, turnOpts...)
	return eng, nil
}

// RunTurn executes one dialogue turn.
// The result always carries usable dialogue; on failure NewState equals current.
func (e *Engine) RunTurn(ctx context.Context, current *domain.ConversationState, input string) domain.TurnResult {
	return e.orchestrator.Run(ctx, current, input)
}
