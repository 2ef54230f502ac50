/*
Package turn runs one dialogue turn: it renders the prompt for the current state and the
user's input, calls the generator under a bounded retry policy, and turns whatever comes back
into a TurnResult.

The orchestrator never fails outright and never writes state. Every generator or parsing
problem becomes an in-character fallback line with the input state returned unchanged;
persisting the result is the caller's job.
*/
package turn
