package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/steve/pkg/domain"
)

// Codec converts a ConversationState to and from its stored bytes.
type Codec interface {
	Marshal(state *domain.ConversationState) ([]byte, error)
	Unmarshal(data []byte) (*domain.ConversationState, error)
}

// JSONCodec stores the state as indented JSON followed by a newline.
// Its output is deterministic, so saving the same state twice yields identical bytes.
type JSONCodec struct{}

// Marshal implements Codec.
func (JSONCodec) Marshal(state *domain.ConversationState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal implements Codec. The decoded state is validated; failures wrap domain.ErrCorruptState.
func (JSONCodec) Unmarshal(data []byte) (*domain.ConversationState, error) {
	var state domain.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}
	return &state, nil
}
