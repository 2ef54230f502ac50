// Package transcript writes per-session conversation logs.
package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/ports"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultDir is where transcripts are written unless configured otherwise.
	DefaultDir = "logs"

	// DefaultMaxSizeMB rotates a transcript once it grows past this size.
	DefaultMaxSizeMB = 10

	// Separator closes every turn.
	Separator = "---"

	timestampLayout = "2006-01-02 15:04:05"
	anonymous       = "anonymous"
)

var _ ports.TranscriptWriter = (*Writer)(nil)

// Writer appends timestamped lines to a single transcript file.
// Safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	path string
	out  io.WriteCloser
}

// Open reserves a unique transcript file for name inside dir and returns a Writer for it.
// maxSizeMB <= 0 uses DefaultMaxSizeMB.
func Open(dir, name string, maxSizeMB int) (*Writer, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	path, err := reserve(dir, SanitizeName(name))
	if err != nil {
		return nil, err
	}

	return &Writer{
		path: path,
		out: &lumberjack.Logger{
			Filename:  path,
			MaxSize:   maxSizeMB,
			LocalTime: true,
		},
	}, nil
}

// NewWriter wraps an arbitrary sink, labelled with path.
func NewWriter(path string, out io.WriteCloser) *Writer {
	return &Writer{path: path, out: out}
}

// Append writes each entry on its own line, then the separator, in a single write.
func (w *Writer) Append(entries ...domain.LogEntry) error {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.Format(timestampLayout), e.Speaker, e.Text)
	}
	b.WriteString(Separator + "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// Turn builds the two entries of one exchange, sharing a timestamp.
func Turn(at time.Time, userName, input, dialogue string) []domain.LogEntry {
	return []domain.LogEntry{
		{Timestamp: at, Speaker: userName, Text: input},
		{Timestamp: at, Speaker: domain.CharacterName, Text: dialogue},
	}
}

// Path returns the transcript file path.
func (w *Writer) Path() string {
	return w.path
}

// Close releases the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Close()
}

// SanitizeName keeps letters, digits, spaces and underscores, trims trailing space
// and turns the remaining spaces into underscores.
func SanitizeName(name string) string {
	kept := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			return r
		}
		return -1
	}, name)

	kept = strings.ReplaceAll(strings.TrimRight(kept, " "), " ", "_")
	if kept == "" {
		return anonymous
	}
	return kept
}

// reserve creates the first free <name>.log, <name>_1.log, ... so concurrent sessions never share a file.
func reserve(dir, name string) (string, error) {
	for i := 0; ; i++ {
		file := name + ".log"
		if i > 0 {
			file = fmt.Sprintf("%s_%d.log", name, i)
		}
		path := filepath.Join(dir, file)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create transcript: %w", err)
		}
		return path, f.Close()
	}
}
