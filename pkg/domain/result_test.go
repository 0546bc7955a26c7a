package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummary(t *testing.T) {
	records := []PipeRecord{
		{ID: "build", Status: StatusExecuted},
		{ID: "docs", Status: StatusNotDetected},
		{ID: "deploy", Status: StatusFailed},
		{ID: "later", Status: StatusUnknown},
	}
	assert.Equal(t, ":white_check_mark: build\n:heavy_minus_sign: docs\n:x: deploy\n:grey_question: later", Summary(records))
	assert.Empty(t, Summary(nil))
}

func TestContainsActivity(t *testing.T) {
	assert.False(t, ContainsActivity(nil))
	assert.False(t, ContainsActivity([]PipeRecord{{ID: "a", Status: StatusNotDetected}}))
	assert.True(t, ContainsActivity([]PipeRecord{{ID: "a", Status: StatusNotDetected}, {ID: "b", Status: StatusFailed}}))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, OutcomeOf(nil))
	assert.Equal(t, OutcomeFailure, OutcomeOf(errors.New("x")))
}
