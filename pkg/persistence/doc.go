// Package persistence defines how a ConversationState is encoded at rest.
//
// Store adapters delegate serialization to a Codec, so encryption can be switched on
// without touching the file or redis adapters.
package persistence
