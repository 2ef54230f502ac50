package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/ports"
)

const (
	// DefaultLockKey names the distributed lock guarding the conversation.
	DefaultLockKey = "conversation"

	// DefaultLockTTL outlives the worst case turn (3 attempts with 20s timeouts and 3s delays).
	DefaultLockTTL = 90 * time.Second
)

// Engine runs a single turn. *steve.Engine satisfies it.
type Engine interface {
	RunTurn(ctx context.Context, current *domain.ConversationState, input string) domain.TurnResult
}

// Session serializes access to the conversation state.
type Session struct {
	store  ports.StateStore
	engine Engine

	mu    sync.Mutex
	state *domain.ConversationState

	locker  ports.DistributedLocker // Optional distributed locker
	lockKey string
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Session.
type Option func(*Session)

// WithLocker enables distributed locking. The state is then reloaded from the store
// before every turn, since another replica may have advanced it.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Session) {
		s.locker = locker
	}
}

// WithLockTTL overrides how long a distributed lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Session) {
		s.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a Session over store, running turns with engine.
func New(store ports.StateStore, engine Engine, opts ...Option) *Session {
	s := &Session{
		store:   store,
		engine:  engine,
		lockKey: DefaultLockKey,
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets the conversation to the template. A missing template is fatal for startup.
func (s *Session) Start(ctx context.Context) (*domain.ConversationState, error) {
	return s.Reset(ctx)
}

// Resume continues from the persisted state, falling back to the template when nothing
// has been saved yet.
func (s *Session) Resume(ctx context.Context) (*domain.ConversationState, error) {
	var state *domain.ConversationState
	err := s.withLock(ctx, func(ctx context.Context) error {
		loaded, err := s.load(ctx)
		if err != nil {
			return err
		}
		s.state = loaded
		state = loaded.Clone()
		return nil
	})
	return state, err
}

// Reset copies the template over the state and returns it.
func (s *Session) Reset(ctx context.Context) (*domain.ConversationState, error) {
	var state *domain.ConversationState
	err := s.withLock(ctx, func(ctx context.Context) error {
		fresh, err := s.store.Reset(ctx)
		if err != nil {
			return fmt.Errorf("failed to reset state: %w", err)
		}
		s.state = fresh
		state = fresh.Clone()
		return nil
	})
	return state, err
}

// Turn runs one dialogue turn and persists the resulting state.
//
// The result is returned even when saving fails: the dialogue is still delivered and the
// error (wrapping domain.ErrPersistence) lets the caller report that memory and disk diverged.
// A non-nil error with a zero result means the turn never ran.
func (s *Session) Turn(ctx context.Context, input string) (domain.TurnResult, error) {
	var result domain.TurnResult
	err := s.withLock(ctx, func(ctx context.Context) error {
		if s.state == nil || s.locker != nil {
			current, err := s.load(ctx)
			if err != nil {
				return err
			}
			s.state = current
		}

		result = s.engine.RunTurn(ctx, s.state, input)
		s.state = result.NewState.Clone()

		if err := s.store.Save(ctx, s.state); err != nil {
			s.logger.Error("State kept in memory but not persisted", "err", err)
			return fmt.Errorf("failed to save state: %w", err)
		}
		return nil
	})
	return result, err
}

// Current returns a copy of the in-memory state, or nil before the first Start, Resume or Turn.
func (s *Session) Current() *domain.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) load(ctx context.Context) (*domain.ConversationState, error) {
	state, err := s.store.Load(ctx)
	if errors.Is(err, domain.ErrStateNotFound) {
		s.logger.Debug("No saved state, starting from template")
		state, err = s.store.Reset(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return state, nil
}

// withLock executes fn while holding the session mutex and, if configured, the distributed lock.
func (s *Session) withLock(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, s.lockKey, s.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The turn's context may already be done; release on a fresh one.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", s.lockKey,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
