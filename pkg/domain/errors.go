package domain

import "errors"

// ErrStateNotFound is returned when no conversation state has been persisted yet.
// Callers recover by resetting to the template.
var ErrStateNotFound = errors.New("conversation state not found")

// ErrTemplateMissing is returned when the reset template does not exist.
var ErrTemplateMissing = errors.New("state template missing")

// ErrCorruptState is returned when a persisted document fails validation.
var ErrCorruptState = errors.New("conversation state corrupt")

// ErrPersistence wraps failures writing the conversation state.
var ErrPersistence = errors.New("failed to persist conversation state")

// ErrGeneratorUnavailable marks a transient generator failure (e.g. service overloaded).
var ErrGeneratorUnavailable = errors.New("generator unavailable")

// ErrGeneratorFatal marks a generator failure that must not be retried (e.g. bad credentials).
var ErrGeneratorFatal = errors.New("generator failed")

// ErrResponseMalformed is returned when the generator output is not a JSON document.
var ErrResponseMalformed = errors.New("generator response malformed")

// ErrResponseIncomplete is returned when the generator output lacks newState.
var ErrResponseIncomplete = errors.New("generator response missing newState")

// ErrNarrativeStateInvalid is returned when a proposed state breaks the narrative rules.
var ErrNarrativeStateInvalid = errors.New("narrative state invalid")

// ErrLockAcquire is returned when the conversation lock cannot be taken.
var ErrLockAcquire = errors.New("failed to acquire conversation lock")
