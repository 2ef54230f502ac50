package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "steve:"

// Store implements ports.StateStore using Redis.
// The template is held in memory; Reset writes it to Redis.
type Store struct {
	client   *backend.Client
	prefix   string
	ttl      time.Duration
	codec    persistence.Codec
	template *domain.ConversationState
}

type Option func(*Store)

// WithTTL sets the expiration for the state key.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithCodec sets the codec used to encode the stored value.
func WithCodec(codec persistence.Codec) Option {
	return func(s *Store) {
		s.codec = codec
	}
}

// WithTemplate sets the state Reset restores.
func WithTemplate(template *domain.ConversationState) Option {
	return func(s *Store) {
		s.template = template.Clone()
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
		codec:  persistence.JSONCodec{},
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix in use.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key() string {
	return s.prefix + "state"
}

// Save persists the state to Redis. SET replaces the value in one step.
func (s *Store) Save(ctx context.Context, state *domain.ConversationState) error {
	data, err := s.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if err := s.client.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to save to redis: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context) (*domain.ConversationState, error) {
	val, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	return s.codec.Unmarshal(val)
}

// Reset writes the template and returns a copy of it.
func (s *Store) Reset(ctx context.Context) (*domain.ConversationState, error) {
	if s.template == nil {
		return nil, fmt.Errorf("%w: redis store has no template configured", domain.ErrTemplateMissing)
	}
	if err := s.Save(ctx, s.template); err != nil {
		return nil, err
	}
	return s.template.Clone(), nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
