package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventGenerate EventType = "generate"
	EventTurn     EventType = "turn"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// GenerateEvent describes one call to the external generator.
type GenerateEvent struct {
	EventBase
	Attempt  int           `json:"attempt"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// TurnEvent describes a finished turn.
type TurnEvent struct {
	EventBase
	From     NarrativeState `json:"from"`
	To       NarrativeState `json:"to"`
	Outcome  TurnOutcome    `json:"outcome"`
	Attempts int            `json:"attempts"`
	Duration time.Duration  `json:"duration"`
}

// LifecycleHooks defines callbacks for turn observability.
type LifecycleHooks struct {
	OnGenerate func(context.Context, *GenerateEvent)
	OnTurn     func(context.Context, *TurnEvent)
}

// Combine returns hooks that call each of the given hooks in order.
func Combine(all ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range all {
		if h.OnGenerate != nil {
			prev, next := out.OnGenerate, h.OnGenerate
			out.OnGenerate = func(ctx context.Context, e *GenerateEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
		if h.OnTurn != nil {
			prev, next := out.OnTurn, h.OnTurn
			out.OnTurn = func(ctx context.Context, e *TurnEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
	}
	return out
}
