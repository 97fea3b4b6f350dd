package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to WorkflowStatus
		ok       bool
	}{
		{StatusDraft, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusError, true},
		{StatusCompleted, StatusInProgress, true},
		{StatusError, StatusInProgress, true},
		{StatusDraft, StatusCompleted, false},
		{StatusDraft, StatusError, false},
		{StatusCompleted, StatusDraft, false},
		{StatusCompleted, StatusError, false},
		{StatusError, StatusCompleted, false},
	}

	for _, c := range cases {
		got, err := c.from.Transition(c.to)
		if c.ok {
			assert.NoError(t, err, "%s -> %s", c.from, c.to)
			assert.Equal(t, c.to, got)
		} else {
			assert.Error(t, err, "%s -> %s", c.from, c.to)
			assert.Equal(t, c.from, got, "rejected transition must not change state")
		}
	}
}

func TestAgentTypePipeline(t *testing.T) {
	assert.Len(t, PipelineOrder, 5)

	for i, agent := range PipelineOrder {
		assert.True(t, agent.Valid())
		assert.Equal(t, i, agent.StepIndex())
		assert.NotEmpty(t, agent.DisplayName())
		assert.NotEmpty(t, agent.OutputType())
	}

	assert.False(t, AgentType("project_manager").Valid())
	assert.Equal(t, -1, AgentType("project_manager").StepIndex())
}
