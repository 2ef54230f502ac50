package tui

import (
	"fmt"
)

// Banner prints the title card.
func (p *Printer) Banner(version string) {
	if !p.styled {
		fmt.Fprintln(p.out, "--- In Steve's Room ---")
		return
	}

	// Dusk gradient, top to bottom
	lines := []struct{ text, color string }{
		{"   ____  _                 _       ____                        ", "#fcd34d"},
		{"  / ___|| |_ _____   _____( )___  |  _ \\ ___   ___  _ __ ___   ", "#fbbf24"},
		{"  \\___ \\| __/ _ \\ \\ / / _ \\// __| | |_) / _ \\ / _ \\| '_ ` _ \\  ", "#f59e0b"},
		{"   ___) | ||  __/\\ V /  __/ \\__ \\ |  _ < (_) | (_) | | | | | | ", "#a78bfa"},
		{"  |____/ \\__\\___| \\_/ \\___| |___/ |_| \\_\\___/ \\___/|_| |_| |_| ", "#818cf8"},
	}

	fmt.Fprintln(p.out)
	for _, l := range lines {
		fmt.Fprintln(p.out, p.o.String(l.text).Foreground(p.o.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(p.out, p.o.String("  v"+version).Faint())
	}
	fmt.Fprintln(p.out)
}
