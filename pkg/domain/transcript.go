package domain

import "time"

// LogEntry is one append-only transcript record.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
}

// CharacterName is the speaker label used for Steve's lines.
const CharacterName = "Steve"
