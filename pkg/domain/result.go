package domain

import (
	"strings"
	"time"
)

// PipeStatus is the lifecycle state of a pipe within one run.
type PipeStatus string

const (
	StatusUnknown     PipeStatus = "unknown"
	StatusDetected    PipeStatus = "detected"
	StatusNotDetected PipeStatus = "not-detected"
	StatusExecuted    PipeStatus = "executed"
	StatusFailed      PipeStatus = "failed"
)

// Outcome is the observed result of a wrapped operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// OutcomeOf maps an error to an Outcome.
func OutcomeOf(err error) Outcome {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// StepResult is the record of one shell invocation.
type StepResult struct {
	Step     string        `json:"step"`
	ExitCode int           `json:"exit_code"`
	Stdout   []byte        `json:"stdout,omitempty"`
	Stderr   []byte        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the step exited with code zero.
func (r StepResult) Succeeded() bool {
	return r.ExitCode == 0
}

// PipeRecord is one row of the execution report.
type PipeRecord struct {
	ID     string     `json:"id"`
	Status PipeStatus `json:"status"`
}

// AnalysisRecord is one row of the analysis report.
type AnalysisRecord struct {
	ID       string `json:"id"`
	Detected bool   `json:"detected"`
}

// ContainsActivity reports whether any pipe did something other than being skipped.
func ContainsActivity(records []PipeRecord) bool {
	for _, r := range records {
		if r.Status != StatusNotDetected {
			return true
		}
	}
	return false
}

// Gitmoji returns the shortcode rendered for a status in reports and
// checkpoint commit messages.
func (s PipeStatus) Gitmoji() string {
	switch s {
	case StatusExecuted:
		return ":white_check_mark:"
	case StatusFailed:
		return ":x:"
	case StatusNotDetected:
		return ":heavy_minus_sign:"
	case StatusDetected:
		return ":mag:"
	}
	return ":grey_question:"
}

// Summary renders one "<gitmoji> <id>" line per record.
func Summary(records []PipeRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Status.Gitmoji())
		b.WriteByte(' ')
		b.WriteString(r.ID)
	}
	return b.String()
}
