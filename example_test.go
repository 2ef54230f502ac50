package steve_test

import (
	"context"
	"fmt"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/ports"
)

func Example() {
	// Any ports.Generator works; this one always proposes the same move.
	gen := ports.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return `{
			"newState": {"steveState": "Considering", "loopCount": 0, "lastUserSuggestion": "drawing your lunch"},
			"dialogue": "Huh. My lunch? I mean... it's just a sandwich.",
			"visualState": "considering"
		}`, nil
	})

	eng, err := steve.New(gen)
	if err != nil {
		panic(err)
	}

	state := &domain.ConversationState{SteveState: domain.StateDefaultStasis, LoopCount: 2}
	result := eng.RunTurn(context.Background(), state, "have you tried drawing your lunch?")

	fmt.Println(result.Dialogue)
	fmt.Println(result.NewState.SteveState, result.NewState.LoopCount, result.VisualState)
	// Output:
	// Huh. My lunch? I mean... it's just a sandwich.
	// Considering 0 considering
}

func Example_fallback() {
	gen := ports.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "not json at all", nil
	})

	eng, _ := steve.New(gen)
	state := domain.NewConversationState()
	result := eng.RunTurn(context.Background(), state, "hello?")

	fmt.Println(result.Dialogue)
	fmt.Println(result.NewState.Equal(state))
	// Output:
	// Sorry, I got a little tongue-tied there. Could you say that again?
	// true
}
