package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/internal/adapters/file"
	"github.com/aretw0/steve/internal/presentation/tui"
	"github.com/aretw0/steve/internal/testutils"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/narrative"
	"github.com/aretw0/steve/pkg/ports"
	"github.com/aretw0/steve/pkg/session"
	"github.com/aretw0/steve/pkg/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	out       bytes.Buffer
	logsDir   string
	statePath string
	gen       *testutils.ScriptedGenerator
	sess      *session.Session
}

func newChatFixture(t *testing.T, replies ...testutils.Reply) *chatFixture {
	t.Helper()
	statePath, templatePath := testutils.WriteTemplate(t)

	gen := testutils.NewScriptedGenerator(replies...)
	eng, err := steve.New(gen, steve.WithRetryPolicy(turn.DefaultRetryPolicy().NoDelay()))
	require.NoError(t, err)

	return &chatFixture{
		logsDir:   t.TempDir(),
		statePath: statePath,
		gen:       gen,
		sess:      session.New(file.New(statePath, templatePath), eng),
	}
}

func (f *chatFixture) run(t *testing.T, input string) error {
	t.Helper()
	return RunChat(context.Background(), f.sess, ChatOptions{
		In:      strings.NewReader(input),
		Printer: tui.NewPrinter(&f.out, false),
		LogsDir: f.logsDir,
		Now:     func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local) },
	})
}

func TestRunChat(t *testing.T) {
	f := newChatFixture(t, testutils.Respond(testutils.TurnJSON(t, domain.ConversationState{
		SteveState:          domain.StateDefaultStasis,
		LoopCount:           1,
		ConversationSummary: "User said hi.",
	}, "Oh. Hey.")))

	err := f.run(t, "Ana Maria\nhi Steve\n\n   \nquit\n")
	require.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "Please enter your name for this session: ")
	assert.Contains(t, out, "[System: This conversation will be logged to '"+filepath.Join(f.logsDir, "Ana_Maria.log")+"']")
	assert.Contains(t, out, "**Ana Maria:** What's wrong?")
	assert.Contains(t, out, "Steve: Oh. Hey.")
	assert.True(t, strings.HasSuffix(out, narrative.QuitLine+"\n"))
	assert.Equal(t, 1, f.gen.Calls(), "blank lines are not turns")

	log, err := os.ReadFile(filepath.Join(f.logsDir, "Ana_Maria.log"))
	require.NoError(t, err)
	assert.Equal(t, "[2025-01-02 03:04:05] Ana Maria: hi Steve\n"+
		"[2025-01-02 03:04:05] Steve: Oh. Hey.\n"+
		"---\n", string(log))

	saved, err := file.New(f.statePath, "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, saved.LoopCount)
	assert.Equal(t, "User said hi.", saved.ConversationSummary)
}

func TestRunChat_Reset(t *testing.T) {
	f := newChatFixture(t, testutils.Respond(testutils.TurnJSON(t, domain.ConversationState{
		SteveState: domain.StateDefaultStasis,
		LoopCount:  1,
	}, "Meh.")))

	require.NoError(t, f.run(t, "Ana\nhello\nRESET\n"))

	out := f.out.String()
	assert.Contains(t, out, narrative.ResetNotice+"\nSteve: "+narrative.ReopenLine)
	assert.True(t, strings.HasSuffix(out, narrative.QuitLine+"\n"), "end of input says goodbye")

	saved, err := file.New(f.statePath, "").Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, saved.LoopCount, "reset restored the template")
}

func TestRunChat_FallbackIsShownAndLogged(t *testing.T) {
	f := newChatFixture(t, testutils.Respond("I am not JSON"))

	require.NoError(t, f.run(t, "Ana\nhello\nquit\n"))

	assert.Contains(t, f.out.String(), "Steve: "+turn.DialogueMalformed)
	log, err := os.ReadFile(filepath.Join(f.logsDir, "Ana.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "Steve: "+turn.DialogueMalformed)
}

func TestRunChat_TemplateMissing(t *testing.T) {
	dir := t.TempDir()
	eng, err := steve.New(testutils.NewScriptedGenerator())
	require.NoError(t, err)
	sess := session.New(file.New(filepath.Join(dir, "state.json"), filepath.Join(dir, "missing.json")), eng)

	var out bytes.Buffer
	err = RunChat(context.Background(), sess, ChatOptions{
		In:      strings.NewReader("Ana\n"),
		Printer: tui.NewPrinter(&out, false),
		LogsDir: t.TempDir(),
	})

	assert.ErrorIs(t, err, domain.ErrTemplateMissing)
	assert.Contains(t, out.String(), "[System Error] Could not start the application. State template is missing.")
}

func TestRunChat_NameFromOptions(t *testing.T) {
	f := newChatFixture(t)

	err := RunChat(context.Background(), f.sess, ChatOptions{
		In:      strings.NewReader("quit\n"),
		Printer: tui.NewPrinter(&f.out, false),
		Name:    "Jo",
		LogsDir: f.logsDir,
	})
	require.NoError(t, err)

	assert.NotContains(t, f.out.String(), "Please enter your name")
	assert.FileExists(t, filepath.Join(f.logsDir, "Jo.log"))
}

func TestRunChat_BlankName(t *testing.T) {
	f := newChatFixture(t, testutils.Respond(testutils.TurnJSON(t, domain.ConversationState{
		SteveState: domain.StateDefaultStasis,
		LoopCount:  1,
	}, "Hm.")))

	require.NoError(t, f.run(t, "  \nhey\nquit\n"))

	out := f.out.String()
	assert.Contains(t, out, "[System: This conversation will be logged to '"+filepath.Join(f.logsDir, "anonymous.log")+"']")
	assert.Contains(t, out, "You: ")
	assert.NoFileExists(t, filepath.Join(f.logsDir, "You.log"))

	log, err := os.ReadFile(filepath.Join(f.logsDir, "anonymous.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "] You: hey\n")
}

func TestRunChat_EmptyInput(t *testing.T) {
	f := newChatFixture(t)
	assert.NoError(t, f.run(t, ""))
}

type memoryTranscript struct {
	name    string
	entries []domain.LogEntry
	closed  bool
}

func (m *memoryTranscript) Append(entries ...domain.LogEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memoryTranscript) Path() string { return "memory://" + m.name }

func (m *memoryTranscript) Close() error {
	m.closed = true
	return nil
}

func TestRunChat_CustomTranscript(t *testing.T) {
	f := newChatFixture(t, testutils.Respond(testutils.TurnJSON(t, domain.ConversationState{
		SteveState: domain.StateDefaultStasis,
	}, "...yeah.")))

	var tw *memoryTranscript
	err := RunChat(context.Background(), f.sess, ChatOptions{
		In:      strings.NewReader("Sam\nhi\nquit\n"),
		Printer: tui.NewPrinter(&f.out, false),
		OpenTranscript: func(name string) (ports.TranscriptWriter, error) {
			tw = &memoryTranscript{name: name}
			return tw, nil
		},
	})
	require.NoError(t, err)

	require.NotNil(t, tw)
	assert.True(t, tw.closed)
	assert.Contains(t, f.out.String(), "logged to 'memory://Sam'")
	require.Len(t, tw.entries, 2)
	assert.Equal(t, "hi", tw.entries[0].Text)
	assert.Equal(t, "...yeah.", tw.entries[1].Text)
	assert.NoFileExists(t, filepath.Join(f.logsDir, "Sam.log"))
}
