package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/narrative"
	"github.com/aretw0/steve/pkg/ports"
)

// Fallback lines. The user sees one of these instead of an error.
const (
	DialogueMalformed    = "Sorry, I got a little tongue-tied there. Could you say that again?"
	DialogueIncomplete   = "I... lost my train of thought. What were we talking about?"
	DialogueFatal        = "Sorry, my mind just blanked for a second. What were we saying?"
	DialogueExhausted    = "Ugh, sorry, I can't even think straight right now. There's too much static in my head."
	DialogueLostForWords = "I... I'm lost for words."
)

// DefaultAttemptTimeout bounds a single generator call.
const DefaultAttemptTimeout = 20 * time.Second

// Orchestrator runs dialogue turns against a Generator.
type Orchestrator struct {
	generator      ports.Generator
	retry          RetryPolicy
	attemptTimeout time.Duration
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
}

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the default 3 attempts / 3 seconds policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.retry = p
	}
}

// WithAttemptTimeout bounds each generator call. Zero disables the bound.
// A call that runs out of time counts as a transient failure.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.attemptTimeout = d
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Orchestrator for the given generator.
func New(generator ports.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator:      generator,
		retry:          DefaultRetryPolicy(),
		attemptTimeout: DefaultAttemptTimeout,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one turn. It always returns a usable result; on any failure the
// returned NewState equals current and Dialogue is a fallback line.
func (o *Orchestrator) Run(ctx context.Context, current *domain.ConversationState, input string) domain.TurnResult {
	if current == nil {
		current = domain.NewConversationState()
	}

	start := time.Now()
	result := o.run(ctx, current, input)

	if o.hooks.OnTurn != nil {
		o.hooks.OnTurn(ctx, &domain.TurnEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTurn},
			From:      current.SteveState,
			To:        result.NewState.SteveState,
			Outcome:   result.Outcome,
			Attempts:  result.Attempts,
			Duration:  time.Since(start),
		})
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, current *domain.ConversationState, input string) domain.TurnResult {
	o.logger.Debug("Steve is thinking", "state", current.SteveState, "loop_count", current.LoopCount)

	prompt, err := narrative.RenderPrompt(current, input)
	if err != nil {
		o.logger.Error("Prompt rendering failed", "err", err)
		return fallback(current, DialogueFatal, domain.OutcomeFatal, 0)
	}

	raw, attempts, err := o.generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrGeneratorUnavailable) {
			o.logger.Error("All retries failed, the model seems to be consistently unavailable",
				"attempts", attempts, "err", err)
			return fallback(current, DialogueExhausted, domain.OutcomeExhausted, attempts)
		}
		o.logger.Error("Non-retriable generator error", "attempts", attempts, "err", err)
		return fallback(current, DialogueFatal, domain.OutcomeFatal, attempts)
	}

	resp, err := DecodeResponse(raw)
	switch {
	case errors.Is(err, domain.ErrResponseIncomplete):
		o.logger.Warn("Model returned JSON without newState", "attempts", attempts)
		return fallback(current, DialogueIncomplete, domain.OutcomeIncomplete, attempts)
	case errors.Is(err, domain.ErrNarrativeStateInvalid):
		o.logger.Warn("Model proposed a newState of the wrong shape", "err", err)
		o.logger.Debug("Raw model response", "raw", raw)
		return fallback(current, DialogueIncomplete, domain.OutcomeInvalid, attempts)
	case err != nil:
		o.logger.Warn("Model response was not valid JSON", "err", err)
		o.logger.Debug("Raw model response", "raw", raw)
		return fallback(current, DialogueMalformed, domain.OutcomeMalformed, attempts)
	}

	next, repaired, err := narrative.Reconcile(current, resp.NewState)
	if err != nil {
		o.logger.Warn("Model proposed an invalid narrative state", "err", err,
			"from", current.SteveState, "to", resp.NewState.SteveState)
		return fallback(current, DialogueIncomplete, domain.OutcomeInvalid, attempts)
	}
	if repaired {
		o.logger.Debug("Corrected loop count", "proposed", resp.NewState.LoopCount, "corrected", next.LoopCount)
	}
	if next.TruncateSummary() {
		o.logger.Debug("Truncated conversation summary", "limit", domain.MaxSummaryLength)
	}

	dialogue := DialogueLostForWords
	if resp.Dialogue != nil && strings.TrimSpace(*resp.Dialogue) != "" {
		dialogue = strings.TrimSpace(*resp.Dialogue)
	}

	visual := domain.VisualFor(next.SteveState)
	if resp.VisualState != string(visual) {
		o.logger.Debug("Ignoring model visualState", "proposed", resp.VisualState, "derived", visual)
	}

	o.logger.Debug("Steve has figured out what to say", "from", current.SteveState, "to", next.SteveState)

	return domain.TurnResult{
		NewState:    next,
		Dialogue:    dialogue,
		VisualState: visual,
		Outcome:     domain.OutcomeOK,
		Attempts:    attempts,
	}
}

// generate calls the generator until it succeeds, fails fatally or the policy runs out.
func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, int, error) {
	maxAttempts := o.retry.attempts()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := o.attempt(ctx, attempt, prompt)
		if err == nil {
			return raw, attempt, nil
		}
		if !errors.Is(err, domain.ErrGeneratorUnavailable) {
			return "", attempt, err
		}
		lastErr = err

		if attempt < maxAttempts {
			o.logger.Warn("Model is overloaded, retrying",
				"attempt", attempt, "max_attempts", maxAttempts, "delay", o.retry.Delay, "err", err)
			if werr := o.retry.wait(ctx); werr != nil {
				return "", attempt, werr
			}
		}
	}

	return "", maxAttempts, lastErr
}

func (o *Orchestrator) attempt(ctx context.Context, n int, prompt string) (string, error) {
	callCtx := ctx
	cancel := func() {}
	if o.attemptTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
	}
	defer cancel()

	start := time.Now()
	raw, err := o.generator.Generate(callCtx, prompt)

	// Only our own deadline is transient; a canceled parent is not.
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) &&
		!errors.Is(err, domain.ErrGeneratorUnavailable) {
		err = fmt.Errorf("%w: attempt timed out after %s: %v", domain.ErrGeneratorUnavailable, o.attemptTimeout, err)
	}

	if o.hooks.OnGenerate != nil {
		o.hooks.OnGenerate(ctx, &domain.GenerateEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventGenerate},
			Attempt:   n,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	return raw, err
}

func fallback(current *domain.ConversationState, dialogue string, outcome domain.TurnOutcome, attempts int) domain.TurnResult {
	return domain.TurnResult{
		NewState:    current.Clone(),
		Dialogue:    dialogue,
		VisualState: domain.VisualFor(current.SteveState),
		Outcome:     outcome,
		Attempts:    attempts,
	}
}
