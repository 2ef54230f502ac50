package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/internal/adapters/file"
	redisstore "github.com/aretw0/steve/internal/adapters/redis"
	"github.com/aretw0/steve/internal/config"
	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/internal/metrics"
	"github.com/aretw0/steve/pkg/adapters/gemini"
	"github.com/aretw0/steve/pkg/adapters/openai"
	redislock "github.com/aretw0/steve/pkg/adapters/redis"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/persistence"
	"github.com/aretw0/steve/pkg/ports"
	"github.com/aretw0/steve/pkg/session"
)

// Runtime bundles everything a delivery surface needs.
type Runtime struct {
	Session *session.Session
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	closers []func() error
}

// Close releases store connections.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build wires the configured store, generator and session.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	gen, err := NewGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return Assemble(cfg, logger, gen)
}

// Assemble wires a Runtime around an existing generator.
func Assemble(cfg *config.Config, logger *slog.Logger, gen ports.Generator) (*Runtime, error) {
	store, locker, closer, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	m, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	hooks := m.Hooks()
	if cfg.Debug {
		hooks = domain.Combine(hooks, logging.Hooks(logger))
	}

	engine, err := steve.New(gen,
		steve.WithLogger(logger),
		steve.WithLifecycleHooks(hooks),
		steve.WithRetryPolicy(cfg.RetryPolicy()),
		steve.WithAttemptTimeout(cfg.Retry.AttemptTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}

	rt := &Runtime{
		Session: session.New(store, engine, sessionOpts...),
		Metrics: m,
		Logger:  logger,
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}
	return rt, nil
}

// NewStore builds the configured StateStore. The redis backend also returns a
// DistributedLocker sharing its connection, and a closer for it.
func NewStore(cfg *config.Config) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	codec, err := newCodec(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	switch cfg.State.Backend {
	case config.BackendRedis:
		template, err := file.LoadTemplate(cfg.State.Template)
		if err != nil {
			return nil, nil, nil, err
		}
		store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(cfg.Redis.TTL),
			redisstore.WithCodec(codec),
			redisstore.WithTemplate(template),
		)
		locker := redislock.NewLocker(store.Client(), store.Prefix())
		return store, locker, store.Close, nil
	default:
		return file.New(cfg.State.Path, cfg.State.Template, file.WithCodec(codec)), nil, nil, nil
	}
}

// NewStoreOnly builds the configured StateStore for commands that never run turns.
func NewStoreOnly(cfg *config.Config) (ports.StateStore, func() error, error) {
	store, _, closer, err := NewStore(cfg)
	if closer == nil {
		closer = func() error { return nil }
	}
	return store, closer, err
}

func newCodec(cfg *config.Config) (persistence.Codec, error) {
	active, fallback, ok, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if !ok {
		return persistence.JSONCodec{}, nil
	}
	return persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
	})
}

// NewGenerator builds the configured model client.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.New(cfg.APIKey, openai.WithModel(cfg.Model), openai.WithLogger(logger))
	default:
		return gemini.New(ctx, cfg.APIKey, gemini.WithModel(cfg.Model), gemini.WithLogger(logger))
	}
}
