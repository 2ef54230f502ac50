package ports

import (
	"context"
	"testing"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
// newStore must return an empty store whose template equals template.
func RunStateStoreContract(t *testing.T, newStore func(t *testing.T) StateStore, template *domain.ConversationState) {
	ctx := context.Background()

	t.Run("Load Before Save", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Reset Returns Template", func(t *testing.T) {
		store := newStore(t)
		state, err := store.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, template, state)

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, template, loaded)
	})

	t.Run("Reset Is Idempotent", func(t *testing.T) {
		store := newStore(t)
		first, err := store.Reset(ctx)
		require.NoError(t, err)
		second, err := store.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Save and Load", func(t *testing.T) {
		store := newStore(t)
		state := &domain.ConversationState{
			SteveState:          domain.StateConsidering,
			LoopCount:           0,
			ConversationSummary: "User suggested drawing lunch.",
			LastUserSuggestion:  "draw your lunch",
		}
		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, state, loaded)

		// The store must not alias the caller's value.
		state.LoopCount = 7
		again, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, again.LoopCount)
	})

	t.Run("Save Overwrites Wholesale", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, &domain.ConversationState{
			SteveState:         domain.StateElaboratingHope,
			LastUserSuggestion: "sculpt a stapler",
		}))
		next := &domain.ConversationState{SteveState: domain.StateDefaultStasis, LoopCount: 1}
		require.NoError(t, store.Save(ctx, next))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, next, loaded)
	})

	t.Run("Reset After Save", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, &domain.ConversationState{SteveState: domain.StateTheCollapse}))
		state, err := store.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, template, state)
	})
}
