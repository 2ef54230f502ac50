package domain

// TurnOutcome records which path of the turn protocol produced a result.
type TurnOutcome string

const (
	OutcomeOK         TurnOutcome = "ok"         // Validated newState accepted
	OutcomeMalformed  TurnOutcome = "malformed"  // Response was not JSON
	OutcomeIncomplete TurnOutcome = "incomplete" // JSON without newState
	OutcomeInvalid    TurnOutcome = "invalid"    // newState failed narrative validation
	OutcomeFatal      TurnOutcome = "fatal"      // Non-retriable generator failure
	OutcomeExhausted  TurnOutcome = "exhausted"  // Generator unavailable on every attempt
)

// Advanced reports whether the outcome moved the conversation forward.
func (o TurnOutcome) Advanced() bool {
	return o == OutcomeOK
}

// TurnResult is the ephemeral product of a single turn.
type TurnResult struct {
	NewState    *ConversationState `json:"newState"`
	Dialogue    string             `json:"dialogue"`
	VisualState VisualState        `json:"visualState"`

	// Outcome and Attempts are diagnostics; they are never shown to the user.
	Outcome  TurnOutcome `json:"outcome"`
	Attempts int         `json:"attempts"`
}
