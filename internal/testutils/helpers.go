package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Reply is one scripted generator answer.
type Reply struct {
	Raw string
	Err error
}

// Respond scripts a successful generation.
func Respond(raw string) Reply {
	return Reply{Raw: raw}
}

// Fail scripts a failed generation.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Unavailable scripts a transient failure.
func Unavailable() Reply {
	return Reply{Err: fmt.Errorf("%w: 503 model overloaded", domain.ErrGeneratorUnavailable)}
}

// ScriptedGenerator replays canned replies in order, repeating the last one when the script runs out.
// It records every prompt it receives. Safe for concurrent use.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
}

// NewScriptedGenerator creates a generator that answers with replies in order.
func NewScriptedGenerator(replies ...Reply) *ScriptedGenerator {
	return &ScriptedGenerator{replies: replies}
}

// Generate implements ports.Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return "", fmt.Errorf("%w: script is empty", domain.ErrGeneratorFatal)
	}

	idx := len(g.prompts) - 1
	if idx >= len(g.replies) {
		idx = len(g.replies) - 1
	}
	r := g.replies[idx]
	return r.Raw, r.Err
}

// Calls returns how many times Generate was called.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns a copy of the received prompts.
func (g *ScriptedGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// TurnJSON builds a well-formed generator response.
func TurnJSON(t testing.TB, state domain.ConversationState, dialogue string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"newState":    state,
		"dialogue":    dialogue,
		"visualState": domain.VisualFor(state.SteveState),
	})
	require.NoError(t, err)
	return string(data)
}

// TemplateJSON is the template document shipped with the project.
const TemplateJSON = `{
    "steveState": "Default Stasis",
    "loopCount": 0,
    "conversationSummary": "Steve is stuck on his art assignment about himself.",
    "lastUserSuggestion": ""
}
`

// WriteTemplate writes TemplateJSON into a temp dir and returns the state and template paths.
func WriteTemplate(t testing.TB) (statePath, templatePath string) {
	t.Helper()
	dir := t.TempDir()
	templatePath = filepath.Join(dir, "template.json")
	require.NoError(t, os.WriteFile(templatePath, []byte(TemplateJSON), 0644))
	return filepath.Join(dir, "state.json"), templatePath
}
