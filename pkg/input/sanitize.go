// Package input cleans user messages before they reach a turn.
package input

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxSize is 4KB; Steve doesn't read essays.
	DefaultMaxSize = 4096
	// EnvMaxSize is the environment variable to override the default
	EnvMaxSize = "STEVE_MAX_INPUT_SIZE"
)

var (
	ErrTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")
	ErrEmpty       = errors.New("input is empty")
)

// Sanitize enforces the size limit, validates UTF-8, strips control characters and
// trims surrounding whitespace. Blank input is ErrEmpty. limit <= 0 uses MaxSize().
func Sanitize(s string, limit int) (string, error) {
	if limit <= 0 {
		limit = MaxSize()
	}
	if len(s) > limit {
		// Rejected rather than truncated so the model never sees half a message.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(s), limit)
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and carriage return survive; ESC, NUL, BEL and friends do not.
	if strings.IndexFunc(s, isUnsafeControl) != -1 {
		s = strings.Map(func(r rune) rune {
			if isUnsafeControl(r) {
				return -1
			}
			return r
		}, s)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}
	return s, nil
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// MaxSize returns the configured limit, honoring EnvMaxSize.
func MaxSize() int {
	if val := os.Getenv(EnvMaxSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxSize
}
