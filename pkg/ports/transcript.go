package ports

import "github.com/aretw0/steve/pkg/domain"

// TranscriptWriter appends conversation records for one session.
type TranscriptWriter interface {
	// Append writes the entries in order, followed by a turn separator.
	Append(entries ...domain.LogEntry) error

	// Path identifies where the transcript lives.
	Path() string

	Close() error
}
