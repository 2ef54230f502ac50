package narrative

import (
	"fmt"
	"strings"

	"github.com/aretw0/steve/pkg/domain"
)

// StalemateThreshold is the number of consecutive Default Stasis turns after which Steve
// asks the user what they think he should do, and the counter starts over.
const StalemateThreshold = 3

// MaxHopeTurns is the longest run of consecutive Elaborating Hope turns before The Collapse is forced.
const MaxHopeTurns = 2

type transition struct {
	from, to domain.NarrativeState
}

// legal lists every allowed step of the loop.
var legal = map[transition]bool{
	{domain.StateDefaultStasis, domain.StateDefaultStasis}:     true,
	{domain.StateDefaultStasis, domain.StateConsidering}:       true,
	{domain.StateConsidering, domain.StateElaboratingHope}:     true,
	{domain.StateElaboratingHope, domain.StateElaboratingHope}: true, // bounded by MaxHopeTurns
	{domain.StateElaboratingHope, domain.StateTheCollapse}:     true,
	{domain.StateTheCollapse, domain.StateDefaultStasis}:       true,
}

// CanTransition reports whether the loop allows moving from one state to another.
func CanTransition(from, to domain.NarrativeState) bool {
	return legal[transition{from, to}]
}

// Successors returns the states reachable from s in one turn, in loop order.
func Successors(s domain.NarrativeState) []domain.NarrativeState {
	var out []domain.NarrativeState
	for _, to := range domain.NarrativeStates {
		if CanTransition(s, to) {
			out = append(out, to)
		}
	}
	return out
}

// NextStates returns the states prev may move to this turn, in loop order.
// Unlike Successors it accounts for the hope limit.
func NextStates(prev *domain.ConversationState) []domain.NarrativeState {
	var out []domain.NarrativeState
	for _, to := range Successors(prev.SteveState) {
		if to == domain.StateElaboratingHope && HopeExhausted(prev) {
			continue
		}
		out = append(out, to)
	}
	return out
}

// HopeExhausted reports whether Steve has spent MaxHopeTurns in Elaborating Hope and must collapse now.
func HopeExhausted(prev *domain.ConversationState) bool {
	return prev.SteveState == domain.StateElaboratingHope && prev.LoopCount+1 >= MaxHopeTurns
}

// StalemateDue reports whether staying in Default Stasis this turn fires the stalemate breaker.
func StalemateDue(prev *domain.ConversationState) bool {
	return prev.SteveState == domain.StateDefaultStasis && prev.LoopCount+1 >= StalemateThreshold
}

// ExpectedLoopCount returns the loop counter the next state must carry when moving from prev to next.
// Outside Default Stasis the counter tracks repeated Elaborating Hope turns.
func ExpectedLoopCount(prev *domain.ConversationState, next domain.NarrativeState) int {
	switch {
	case prev.SteveState != next:
		return 0
	case next == domain.StateDefaultStasis:
		if StalemateDue(prev) {
			return 0
		}
		return prev.LoopCount + 1
	case next == domain.StateElaboratingHope:
		return prev.LoopCount + 1
	}
	return 0
}

// Validate checks that next is a structurally legal successor of prev.
// Every failure wraps domain.ErrNarrativeStateInvalid.
func Validate(prev, next *domain.ConversationState) error {
	if err := checkStructure(prev, next); err != nil {
		return err
	}
	if want := ExpectedLoopCount(prev, next.SteveState); next.LoopCount != want {
		return fmt.Errorf("%w: loopCount %d after %q -> %q, want %d",
			domain.ErrNarrativeStateInvalid, next.LoopCount, prev.SteveState, next.SteveState, want)
	}
	return nil
}

// Reconcile accepts a proposed next state, correcting only the loop counter.
// Models miscount often; they may not invent transitions, so illegal steps are still rejected.
// It returns a new value and reports whether the counter was corrected.
func Reconcile(prev, next *domain.ConversationState) (*domain.ConversationState, bool, error) {
	if prev == nil || next == nil {
		return nil, false, fmt.Errorf("%w: missing state", domain.ErrNarrativeStateInvalid)
	}

	out := next.Clone()
	out.LoopCount = ExpectedLoopCount(prev, next.SteveState)
	if err := Validate(prev, out); err != nil {
		return nil, false, err
	}
	return out, out.LoopCount != next.LoopCount, nil
}

func checkStructure(prev, next *domain.ConversationState) error {
	if prev == nil || next == nil {
		return fmt.Errorf("%w: missing state", domain.ErrNarrativeStateInvalid)
	}
	if err := prev.Validate(); err != nil {
		return fmt.Errorf("%w: previous state: %v", domain.ErrNarrativeStateInvalid, err)
	}
	if !next.SteveState.IsValid() {
		return fmt.Errorf("%w: unknown steveState %q", domain.ErrNarrativeStateInvalid, next.SteveState)
	}
	if !CanTransition(prev.SteveState, next.SteveState) {
		return fmt.Errorf("%w: %q -> %q is not a legal transition",
			domain.ErrNarrativeStateInvalid, prev.SteveState, next.SteveState)
	}
	if next.SteveState == domain.StateElaboratingHope && HopeExhausted(prev) {
		return fmt.Errorf("%w: %d turns of %q already spent, must move to %q",
			domain.ErrNarrativeStateInvalid, MaxHopeTurns, prev.SteveState, domain.StateTheCollapse)
	}
	if prev.SteveState == domain.StateDefaultStasis && next.SteveState == domain.StateConsidering &&
		strings.TrimSpace(next.LastUserSuggestion) == "" {
		return fmt.Errorf("%w: entering %q without lastUserSuggestion", domain.ErrNarrativeStateInvalid, next.SteveState)
	}
	return nil
}
