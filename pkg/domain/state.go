package domain

import (
	"fmt"
	"unicode/utf8"
)

// NarrativeState is the position of Steve in the emotional loop.
type NarrativeState string

const (
	StateDefaultStasis   NarrativeState = "Default Stasis"   // Stuck, normal, uninspired
	StateConsidering     NarrativeState = "Considering"      // Non-committal intrigue about a suggestion
	StateElaboratingHope NarrativeState = "Elaborating Hope" // Engaging positively with the idea
	StateTheCollapse     NarrativeState = "The Collapse"     // Rejecting the idea, one turn only
)

// NarrativeStates lists the legal states in loop order.
var NarrativeStates = []NarrativeState{
	StateDefaultStasis,
	StateConsidering,
	StateElaboratingHope,
	StateTheCollapse,
}

// IsValid reports whether s is one of the four legal narrative states.
func (s NarrativeState) IsValid() bool {
	switch s {
	case StateDefaultStasis, StateConsidering, StateElaboratingHope, StateTheCollapse:
		return true
	}
	return false
}

func (s NarrativeState) String() string {
	return string(s)
}

// MaxSummaryLength bounds ConversationSummary, in runes.
const MaxSummaryLength = 2000

// ConversationState is the single persisted snapshot of the conversation.
// It is replaced wholesale after every completed turn, never merged field by field.
type ConversationState struct {
	// SteveState is the current narrative state.
	SteveState NarrativeState `json:"steveState"`

	// LoopCount counts consecutive repeat turns in Default Stasis or Elaborating Hope.
	LoopCount int `json:"loopCount"`

	// ConversationSummary is rewritten every turn.
	ConversationSummary string `json:"conversationSummary"`

	// LastUserSuggestion holds the most recent actionable idea offered by the user.
	LastUserSuggestion string `json:"lastUserSuggestion"`
}

// NewConversationState returns the state a fresh conversation starts from.
func NewConversationState() *ConversationState {
	return &ConversationState{SteveState: StateDefaultStasis}
}

// Validate checks the structural invariants of the state.
func (c *ConversationState) Validate() error {
	if c == nil {
		return fmt.Errorf("state is nil")
	}
	if !c.SteveState.IsValid() {
		return fmt.Errorf("unknown steveState %q", c.SteveState)
	}
	if c.LoopCount < 0 {
		return fmt.Errorf("negative loopCount %d", c.LoopCount)
	}
	return nil
}

// Clone returns an independent copy of the state.
func (c *ConversationState) Clone() *ConversationState {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Equal reports whether both states hold the same values.
func (c *ConversationState) Equal(other *ConversationState) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}

// TruncateSummary enforces MaxSummaryLength on the summary.
// It reports whether the summary was shortened.
func (c *ConversationState) TruncateSummary() bool {
	if utf8.RuneCountInString(c.ConversationSummary) <= MaxSummaryLength {
		return false
	}
	runes := []rune(c.ConversationSummary)
	c.ConversationSummary = string(runes[:MaxSummaryLength])
	return true
}
