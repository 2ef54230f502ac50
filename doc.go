/*
Package steve drives Steve, a scripted character stuck on an art assignment about himself,
through a four-state emotional loop.

Each turn renders a prompt from the current ConversationState and the user's input, asks an
external Generator for a JSON reply, and validates the proposed next state against the
narrative state machine before accepting it. Every failure path degrades to an in-character
fallback line and leaves the state untouched, so a caller always has something to show.

# Concept

The narrative loop is fixed:

	Default Stasis -> Considering -> Elaborating Hope -> The Collapse -> Default Stasis

Classifying the user's input (vague talk, a concrete suggestion, encouragement) is left to the
model. Structural legality of the move it proposes is not: illegal transitions are rejected and a
miscounted loop counter is corrected.

The Engine never touches storage. Persisting the returned state is the job of the delivery
layer (see package session), which owns the single conversation slot.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"
		"os"

		"github.com/aretw0/steve"
		"github.com/aretw0/steve/pkg/adapters/gemini"
		"github.com/aretw0/steve/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		gen, err := gemini.New(ctx, os.Getenv("GOOGLE_GEMINI_KEY"))
		if err != nil {
			log.Fatal(err)
		}

		eng, err := steve.New(gen)
		if err != nil {
			log.Fatal(err)
		}

		state := domain.NewConversationState()
		result := eng.RunTurn(ctx, state, "have you tried drawing your lunch?")
		fmt.Println(result.Dialogue)

		// Replace the state wholesale; never merge.
		state = result.NewState
	}
*/
package steve
