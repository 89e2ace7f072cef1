package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
)

// consoleReporter renders pipeline progress to the terminal and mirrors every
// line into the run log. Styling is decided once at construction.
type consoleReporter struct {
	out    io.Writer
	styled bool
	logf   func(format string, v ...any)
}

func newConsoleReporter(out io.Writer, quiet bool, logf func(format string, v ...any)) *consoleReporter {
	if quiet {
		out = io.Discard
	}
	return &consoleReporter{
		out:    out,
		styled: !quiet && isTerminal(out),
		logf:   logf,
	}
}

func (r *consoleReporter) Step(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.logf("%s", msg)
	if r.styled {
		msg = stepStyle.Render(msg)
	}
	fmt.Fprintln(r.out, msg)
}

func (r *consoleReporter) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.logf("%s", msg)
	if r.styled {
		msg = successStyle.Render(msg)
	}
	fmt.Fprintln(r.out, msg)
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
