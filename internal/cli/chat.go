package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/internal/presentation/tui"
	"github.com/aretw0/steve/internal/transcript"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/narrative"
	"github.com/aretw0/steve/pkg/ports"
	"github.com/aretw0/steve/pkg/session"
)

// ChatOptions configures an interactive chat.
type ChatOptions struct {
	In      io.Reader
	Printer *tui.Printer
	Version string

	// Name skips the name prompt when set.
	Name string

	LogsDir   string
	MaxSizeMB int

	// OpenTranscript overrides where the conversation is logged.
	OpenTranscript func(name string) (ports.TranscriptWriter, error)

	Logger *slog.Logger
	Now    func() time.Time
}

// RunChat runs the interactive loop until quit, end of input or ctx cancellation.
func RunChat(ctx context.Context, sess *session.Session, opts ChatOptions) error {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := opts.Printer
	in := bufio.NewReader(opts.In)

	p.Banner(opts.Version)

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		p.Prompt("Please enter your name for this session")
		line, err := readLine(in)
		if err != nil {
			return handleInputError(err)
		}
		name = strings.TrimSpace(line)
	}
	speaker := name
	if speaker == "" {
		speaker = "You"
	}

	if opts.OpenTranscript == nil {
		opts.OpenTranscript = func(name string) (ports.TranscriptWriter, error) {
			return transcript.Open(opts.LogsDir, name, opts.MaxSizeMB)
		}
	}
	tw, err := opts.OpenTranscript(name)
	if err != nil {
		return err
	}
	defer tw.Close()
	p.System("This conversation will be logged to '%s'", tw.Path())
	p.Line("")
	p.Line("Type 'quit' to exit. Type 'reset' to start over.")
	p.Line("")

	p.System("Initializing a new conversation with Steve.")
	if _, err := sess.Start(ctx); err != nil {
		if errors.Is(err, domain.ErrTemplateMissing) {
			p.SystemError("Could not start the application. State template is missing.")
		} else {
			p.SystemError("Could not start the application.")
		}
		return err
	}

	p.Line("")
	p.Scene(fmt.Sprintf(narrative.OpeningScene, speaker))

	for {
		if ctx.Err() != nil {
			return nil
		}

		p.Prompt(speaker)
		line, err := readLine(in)
		if err != nil {
			if isInterrupted(err) {
				p.Line("")
				p.Line(narrative.QuitLine)
			}
			return handleInputError(err)
		}

		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "":
			continue
		case "quit":
			p.Line("")
			p.Line(narrative.QuitLine)
			return nil
		case "reset":
			if _, err := sess.Reset(ctx); err != nil {
				opts.Logger.Error("Reset failed", "err", err)
				p.SystemError("Could not reset the conversation.")
				continue
			}
			p.System("The conversation has been reset.")
			p.Line("")
			p.Line(narrative.ResetNotice)
			p.Steve(narrative.ReopenLine, domain.VisualDim)
			continue
		}

		p.System("Steve is thinking...")
		result, err := sess.Turn(ctx, input)
		if err != nil && result.NewState == nil {
			// The turn never ran (lock or store unavailable).
			opts.Logger.Error("Turn failed", "err", err)
			p.SystemError("Steve couldn't hear you just now. Try again.")
			continue
		}
		if err != nil {
			opts.Logger.Warn("Turn delivered but state was not saved", "err", err)
		}

		p.Line("")
		p.Steve(result.Dialogue, result.VisualState)

		if err := tw.Append(transcript.Turn(opts.Now(), speaker, input, result.Dialogue)...); err != nil {
			opts.Logger.Warn("Failed to write transcript", "path", tw.Path(), "err", err)
		}
	}
}

// readLine returns the next line without its terminator. A final line without
// a newline is still returned; io.EOF only comes back when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func handleInputError(err error) error {
	if isInterrupted(err) {
		return nil // Exit 0 when the user closes the input
	}
	return err
}
