package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// AnalysisMarkdown renders the analysis report as a markdown table.
func AnalysisMarkdown(records []domain.AnalysisRecord) string {
	var b strings.Builder
	b.WriteString("| Pipe | Changes |\n|---|---|\n")
	for _, r := range records {
		status := domain.StatusNotDetected
		if r.Detected {
			status = domain.StatusDetected
		}
		fmt.Fprintf(&b, "| %s | %s %s |\n", r.ID, status.Gitmoji(), status)
	}
	return b.String()
}

// ExecutionMarkdown renders the execution report as a markdown table.
func ExecutionMarkdown(records []domain.PipeRecord) string {
	var b strings.Builder
	b.WriteString("| Pipe | Status |\n|---|---|\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | %s %s |\n", r.ID, r.Status.Gitmoji(), r.Status)
	}
	return b.String()
}

// Render turns markdown into terminal output. Shortcodes become emoji.
func (p *Printer) Render(markdown string) (string, error) {
	style := glamour.WithAutoStyle()
	if p.profile == termenv.Ascii {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(p.width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}

// Report writes a titled, rendered report. When rendering fails the raw
// markdown is written instead.
func (p *Printer) Report(title, markdown string) {
	p.Println(p.Divided(title))
	out, err := p.Render(markdown)
	if err != nil {
		out = markdown
	}
	p.Println(out)
}
