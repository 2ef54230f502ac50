package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/steve/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	state    *domain.ConversationState
	template *domain.ConversationState
}

// NewStore creates a new in-memory store. A nil template makes Reset fail with domain.ErrTemplateMissing.
func NewStore(template *domain.ConversationState) *Store {
	return &Store{template: template.Clone()}
}

// Save stores a copy of the state.
func (s *Store) Save(ctx context.Context, state *domain.ConversationState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	return nil
}

// Load returns a copy so callers can't mutate the stored value through the pointer.
func (s *Store) Load(ctx context.Context) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, domain.ErrStateNotFound
	}
	return s.state.Clone(), nil
}

// Reset restores the template.
func (s *Store) Reset(ctx context.Context) (*domain.ConversationState, error) {
	if s.template == nil {
		return nil, domain.ErrTemplateMissing
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.template.Clone()
	return s.template.Clone(), nil
}
