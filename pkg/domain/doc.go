/*
Package domain contains the core domain models of the Steve conversation engine.

It defines the persisted conversation snapshot, the four narrative states Steve moves
through, the visual mood derived from them and the result of a single turn. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - ConversationState: The single persisted document (narrative state, loop counter, summary, last suggestion).
  - NarrativeState: One of Default Stasis, Considering, Elaborating Hope or The Collapse.
  - VisualState: The coarse mood indicator (dim, considering, bright, dark) derived from the narrative state.
  - TurnResult: What a turn produced (next state, dialogue, visual state and how it was obtained).
  - LogEntry: One transcript line.
*/
package domain
