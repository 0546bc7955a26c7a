package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// Printer carries the formatting context of one command: where output goes,
// how wide a divider is and which colors the terminal supports.
type Printer struct {
	out     io.Writer
	width   int
	profile termenv.Profile
	style   *lipgloss.Renderer
}

// Option configures a Printer.
type Option func(*Printer)

// WithWidth overrides the detected terminal width.
func WithWidth(width int) Option {
	return func(p *Printer) {
		p.width = width
	}
}

// WithProfile overrides the detected color profile. termenv.Ascii disables
// styling entirely.
func WithProfile(profile termenv.Profile) Option {
	return func(p *Printer) {
		p.profile = profile
	}
}

// NewPrinter detects width and color support of out.
func NewPrinter(out io.Writer, opts ...Option) *Printer {
	p := &Printer{
		out:     out,
		width:   detectWidth(out),
		profile: termenv.NewOutput(out).EnvColorProfile(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.width <= 0 {
		p.width = DefaultWidth
	}
	p.style = lipgloss.NewRenderer(out)
	p.style.SetColorProfile(p.profile)
	return p
}

func detectWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// Width returns the divider width.
func (p *Printer) Width() int {
	return p.width
}

// Divided frames text between two horizontal rules as wide as the terminal.
func (p *Printer) Divided(text string) string {
	rule := p.style.NewStyle().
		Foreground(lipgloss.Color("#818cf8")).
		Render(strings.Repeat("=", p.width))
	return rule + "\n" + strings.TrimRight(text, "\n") + "\n" + rule
}

// Println writes a line to the output.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}
