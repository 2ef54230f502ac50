package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/persistence"
)

const (
	// DefaultStatePath is where the live conversation state is kept.
	DefaultStatePath = "state.json"
	// DefaultTemplatePath is the read-only document copied over the state on reset.
	DefaultTemplatePath = "template.json"
)

// Store implements ports.StateStore using the local filesystem.
// The state lives in a single JSON document next to a read-only template.
type Store struct {
	StatePath    string
	TemplatePath string
	codec        persistence.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithCodec sets the codec used for the state document (e.g. encryption).
// The template is always read as plain JSON.
func WithCodec(codec persistence.Codec) Option {
	return func(s *Store) {
		s.codec = codec
	}
}

// New creates a new Store. Empty paths fall back to DefaultStatePath and DefaultTemplatePath.
func New(statePath, templatePath string, opts ...Option) *Store {
	if statePath == "" {
		statePath = DefaultStatePath
	}
	if templatePath == "" {
		templatePath = DefaultTemplatePath
	}
	s := &Store{
		StatePath:    statePath,
		TemplatePath: templatePath,
		codec:        persistence.JSONCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load retrieves the state document.
func (s *Store) Load(ctx context.Context) (*domain.ConversationState, error) {
	data, err := os.ReadFile(s.StatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	return s.codec.Unmarshal(data)
}

// Save persists the state atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, state *domain.ConversationState) error {
	data, err := s.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := writeAtomic(s.StatePath, data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Reset copies the template over the state and returns it.
func (s *Store) Reset(ctx context.Context) (*domain.ConversationState, error) {
	data, err := os.ReadFile(s.TemplatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateMissing, s.TemplatePath)
		}
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	template, err := decodeTemplate(s.TemplatePath, data)
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// LoadTemplate reads and validates a template document.
// Stores that do not live on disk use it to obtain their reset state.
func LoadTemplate(path string) (*domain.ConversationState, error) {
	if path == "" {
		path = DefaultTemplatePath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateMissing, path)
		}
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return decodeTemplate(path, data)
}

func decodeTemplate(path string, data []byte) (*domain.ConversationState, error) {
	template, err := persistence.JSONCodec{}.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return template, nil
}

func writeAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}

	// 1. Create Temp File
	// Same directory as the destination, rename is only atomic within one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	// 2. Write Data
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	// 3. Fsync to ensure durability
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// 4. Close File (cannot rename open file on Windows)
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// 5. Atomic Rename
	// On Windows, os.Rename fails if dest exists, so there is a short delete+rename window there.
	if runtime.GOOS == "windows" {
		if err := os.Remove(destPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove existing state file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
