package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/steve/pkg/domain"
)

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout dialogue/JSON-RPC).
func New(level slog.Level) *slog.Logger {
	return NewTo(os.Stderr, level)
}

// NewTo creates the application logger on w.
// It standardizes common keys (e.g., "error" -> "err").
func NewTo(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// Level maps the debug flag to a log level.
func Level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Hooks logs every generator attempt and turn at debug level.
func Hooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGenerate: func(ctx context.Context, e *domain.GenerateEvent) {
			if e.Err != nil {
				logger.DebugContext(ctx, "generate", "attempt", e.Attempt, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "generate", "attempt", e.Attempt, "duration", e.Duration)
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn",
				"from", e.From,
				"to", e.To,
				"outcome", e.Outcome,
				"attempts", e.Attempts,
				"duration", e.Duration,
			)
		},
	}
}
