// Package tui formats the interactive chat for a terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/steve/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// moodColors tints Steve's lines by visual state.
var moodColors = map[domain.VisualState]string{
	domain.VisualDim:         "#9ca3af",
	domain.VisualConsidering: "#fbbf24",
	domain.VisualBright:      "#38bdf8",
	domain.VisualDark:        "#7c3aed",
}

// Printer writes chat output. Styling is applied only when enabled.
type Printer struct {
	out    io.Writer
	o      *termenv.Output
	styled bool
	render func(string) (string, error)
}

// NewPrinter creates a Printer on out. With styled false everything is plain text.
func NewPrinter(out io.Writer, styled bool) *Printer {
	p := &Printer{out: out, styled: styled}
	if styled {
		p.o = termenv.NewOutput(out)
		p.render = NewRenderer()
	} else {
		p.o = termenv.NewOutput(out, termenv.WithProfile(termenv.Ascii))
	}
	return p
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Styled reports whether colors and markdown rendering are on.
func (p *Printer) Styled() bool {
	return p.styled
}

// System prints a bracketed system notice.
func (p *Printer) System(format string, args ...any) {
	msg := fmt.Sprintf("[System: %s]", fmt.Sprintf(format, args...))
	if p.styled {
		fmt.Fprintln(p.out, p.o.String(msg).Faint())
		return
	}
	fmt.Fprintln(p.out, msg)
}

// SystemError prints a failure notice without raw error text.
func (p *Printer) SystemError(msg string) {
	line := "[System Error] " + msg
	if p.styled {
		fmt.Fprintln(p.out, p.o.String(line).Foreground(p.o.Color("#ef4444")))
		return
	}
	fmt.Fprintln(p.out, line)
}

// Line prints text as is.
func (p *Printer) Line(text string) {
	fmt.Fprintln(p.out, text)
}

// Scene prints a markdown block, rendered when styled.
func (p *Printer) Scene(markdown string) {
	if p.styled && p.render != nil {
		if out, err := p.render(markdown); err == nil {
			fmt.Fprint(p.out, out)
			return
		}
	}
	fmt.Fprintln(p.out, strings.TrimSpace(markdown))
}

// Steve prints one of Steve's lines, tinted by mood.
func (p *Printer) Steve(dialogue string, visual domain.VisualState) {
	line := domain.CharacterName + ": " + dialogue
	if color, ok := moodColors[visual]; ok && p.styled {
		fmt.Fprintln(p.out, p.o.String(line).Foreground(p.o.Color(color)))
		return
	}
	fmt.Fprintln(p.out, line)
}

// Prompt prints the input prompt for name without a newline.
func (p *Printer) Prompt(name string) {
	prompt := name + ": "
	if p.styled {
		fmt.Fprint(p.out, p.o.String(prompt).Bold())
		return
	}
	fmt.Fprint(p.out, prompt)
}
