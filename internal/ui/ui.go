// Package ui renders agsync's console output: timestamped, colored status
// lines for people watching the terminal. Machine-readable logging lives in
// internal/logging.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/autogitsync/agsync/internal/change"
)

// Label is the tag printed after the timestamp.
type Label string

const (
	LabelInfo    Label = "INFO"
	LabelSuccess Label = "SUCCESS"
	LabelWarn    Label = "WARN"
	LabelError   Label = "ERROR"
	LabelGit     Label = "GIT"
	LabelInit    Label = "INIT"
	LabelStartup Label = "STARTUP"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled reports whether w should receive ANSI colors.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && IsTerminal(f)
}

// Printer writes status lines. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	dim    lipgloss.Style
	labels map[Label]lipgloss.Style
	kinds  map[change.Kind]lipgloss.Style
	accent lipgloss.Style
}

// New creates a printer for out. Colors are used only when out is a
// terminal and NO_COLOR is unset.
func New(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	if colorEnabled(out) {
		r.SetColorProfile(termenv.EnvColorProfile())
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	label := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}

	return &Printer{
		out: out,
		now: time.Now,
		dim: r.NewStyle().Faint(true),
		labels: map[Label]lipgloss.Style{
			LabelInfo:    label("12"),
			LabelSuccess: label("10"),
			LabelWarn:    label("11"),
			LabelError:   label("9"),
			LabelGit:     label("13"),
			LabelInit:    label("14"),
			LabelStartup: label("14"),
		},
		kinds: map[change.Kind]lipgloss.Style{
			change.Added:    r.NewStyle().Foreground(lipgloss.Color("10")),
			change.Modified: r.NewStyle().Foreground(lipgloss.Color("11")),
			change.Renamed:  r.NewStyle().Foreground(lipgloss.Color("12")),
			change.Deleted:  r.NewStyle().Foreground(lipgloss.Color("9")),
		},
		accent: r.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

func (p *Printer) line(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", p.dim.Render(p.now().Format("15:04:05")), body)
}

// Print writes a labeled line.
func (p *Printer) Print(l Label, format string, args ...any) {
	p.line(p.labels[l].Render(string(l)) + " " + fmt.Sprintf(format, args...))
}

func (p *Printer) Info(format string, args ...any)    { p.Print(LabelInfo, format, args...) }
func (p *Printer) Success(format string, args ...any) { p.Print(LabelSuccess, format, args...) }
func (p *Printer) Warn(format string, args ...any)    { p.Print(LabelWarn, format, args...) }
func (p *Printer) Error(format string, args ...any)   { p.Print(LabelError, format, args...) }
func (p *Printer) Git(format string, args ...any)     { p.Print(LabelGit, format, args...) }
func (p *Printer) Init(format string, args ...any)    { p.Print(LabelInit, format, args...) }
func (p *Printer) Startup(format string, args ...any) { p.Print(LabelStartup, format, args...) }

// symbols mark each change kind in status lines.
var symbols = map[change.Kind]string{
	change.Added:    "+",
	change.Modified: "~",
	change.Renamed:  "→",
	change.Deleted:  "-",
}

// Status writes the status line for one classified change, e.g.
// "+ added a.txt".
func (p *Printer) Status(kind change.Kind, name string) {
	style := p.kinds[kind]
	p.line(style.Render(symbols[kind]+" "+kind.String()) + " " + name)
}

// Accent renders s in the accent color.
func (p *Printer) Accent(s string) string {
	return p.accent.Render(s)
}
