/*
Package session owns the single conversation state slot.

Delivery surfaces (CLI, HTTP, MCP) never hold state themselves. They go through a Session,
which serializes turns with a mutex, persists every result wholesale and, when several
replicas share a store, also takes a distributed lock and reloads the state before each turn.
*/
package session
