package ports

import (
	"context"

	"github.com/aretw0/steve/pkg/domain"
)

// StateStore defines the interface for persisting the conversation state.
type StateStore interface {
	// Load retrieves the persisted state.
	// Returns domain.ErrStateNotFound if nothing has been persisted yet.
	Load(ctx context.Context) (*domain.ConversationState, error)

	// Save overwrites the persisted state.
	// A concurrent reader must never observe a partially written document.
	Save(ctx context.Context, state *domain.ConversationState) error

	// Reset copies the template over the persisted state and returns it.
	// Returns domain.ErrTemplateMissing if there is no template.
	Reset(ctx context.Context) (*domain.ConversationState, error)
}
