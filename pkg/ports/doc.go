/*
Package ports defines the driven ports (interfaces) of the Steve engine.

These interfaces decouple the turn protocol from external implementations, allowing
the engine to work with various storage backends, language model providers and lock services.

# Key Interfaces

  - StateStore: Persists, loads and resets the single ConversationState document.
  - Generator: The opaque "generate text from a prompt" capability of a hosted model.
  - DistributedLocker: Provides distributed locking when several processes share one state.
  - TranscriptWriter: Appends LogEntry records for a session.
*/
package ports
