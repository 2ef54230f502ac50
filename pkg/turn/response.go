package turn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/steve/pkg/domain"
)

// Response is the JSON document the generator is asked to produce.
type Response struct {
	NewState    *domain.ConversationState `json:"newState" jsonschema:"required"`
	Dialogue    *string                   `json:"dialogue" jsonschema:"required"`
	VisualState string                    `json:"visualState" jsonschema:"required,enum=dim,enum=considering,enum=bright,enum=dark"`
}

// envelope is the outer document. Fields stay raw so a badly typed field
// never turns a parseable reply into a malformed one.
type envelope struct {
	NewState    json.RawMessage `json:"newState"`
	Dialogue    json.RawMessage `json:"dialogue"`
	VisualState json.RawMessage `json:"visualState"`
}

// proposedState accepts any JSON number for loopCount; Reconcile recomputes it.
type proposedState struct {
	SteveState          domain.NarrativeState `json:"steveState"`
	LoopCount           float64               `json:"loopCount"`
	ConversationSummary string                `json:"conversationSummary"`
	LastUserSuggestion  string                `json:"lastUserSuggestion"`
}

// DecodeResponse parses raw generator output.
//
// Models sometimes wrap the object in prose or code fences; when strict parsing fails the
// outermost {...} span is tried before giving up with domain.ErrResponseMalformed.
// Only output that is not a JSON object is malformed. A document without newState yields
// domain.ErrResponseIncomplete, and a newState of the wrong shape yields
// domain.ErrNarrativeStateInvalid. Dialogue and visualState of the wrong type count as absent.
func DecodeResponse(raw string) (*Response, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty output", domain.ErrResponseMalformed)
	}

	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start == -1 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object found (len=%d)", domain.ErrResponseMalformed, len(s))
		}
		env = envelope{}
		if err := json.Unmarshal([]byte(s[start:end+1]), &env); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrResponseMalformed, err)
		}
	}

	resp := &Response{}
	var dialogue string
	if json.Unmarshal(env.Dialogue, &dialogue) == nil && !isNull(env.Dialogue) {
		resp.Dialogue = &dialogue
	}
	_ = json.Unmarshal(env.VisualState, &resp.VisualState)

	if len(env.NewState) == 0 || isNull(env.NewState) {
		return resp, domain.ErrResponseIncomplete
	}
	var proposed proposedState
	if err := json.Unmarshal(env.NewState, &proposed); err != nil {
		return resp, fmt.Errorf("%w: newState: %v", domain.ErrNarrativeStateInvalid, err)
	}
	if proposed == (proposedState{}) {
		return resp, domain.ErrResponseIncomplete
	}

	resp.NewState = &domain.ConversationState{
		SteveState:          proposed.SteveState,
		LoopCount:           int(proposed.LoopCount),
		ConversationSummary: proposed.ConversationSummary,
		LastUserSuggestion:  proposed.LastUserSuggestion,
	}
	return resp, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
