package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/pkg/domain"
)

func plainPrinter(buf *bytes.Buffer, width int) *Printer {
	return NewPrinter(buf, WithWidth(width), WithProfile(termenv.Ascii))
}

func TestPrinter_DefaultWidth(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{})
	assert.Equal(t, DefaultWidth, p.Width())
}

func TestPrinter_Divided(t *testing.T) {
	p := plainPrinter(&bytes.Buffer{}, 10)
	assert.Equal(t, "==========\nFinal Report\n==========", p.Divided("Final Report\n"))
}

func TestPrinter_Banner(t *testing.T) {
	var buf bytes.Buffer
	p := plainPrinter(&buf, 50)
	p.PrintBanner()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, len(bannerLines)+4)
	assert.Equal(t, strings.Repeat("=", 50), lines[0])
	assert.Equal(t, bannerLines[0], lines[1], "no escape sequences without color support")
	assert.Equal(t, "Initiating...", lines[len(lines)-2])
}

func TestAnalysisMarkdown(t *testing.T) {
	md := AnalysisMarkdown([]domain.AnalysisRecord{{ID: "build", Detected: true}, {ID: "docs"}})
	assert.Equal(t, "| Pipe | Changes |\n|---|---|\n"+
		"| build | :mag: detected |\n"+
		"| docs | :heavy_minus_sign: not-detected |\n", md)
}

func TestExecutionMarkdown(t *testing.T) {
	md := ExecutionMarkdown([]domain.PipeRecord{
		{ID: "build", Status: domain.StatusExecuted},
		{ID: "test", Status: domain.StatusFailed},
		{ID: "deploy", Status: domain.StatusUnknown},
	})
	assert.Contains(t, md, "| build | :white_check_mark: executed |")
	assert.Contains(t, md, "| test | :x: failed |")
	assert.Contains(t, md, "| deploy | :grey_question: unknown |")
}

func TestPrinter_Report(t *testing.T) {
	var buf bytes.Buffer
	p := plainPrinter(&buf, 60)
	p.Report("Final Report", ExecutionMarkdown([]domain.PipeRecord{{ID: "build", Status: domain.StatusExecuted}}))

	out := buf.String()
	assert.Contains(t, out, "Final Report")
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "executed")
}
