package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeflow/backend/pkg/models"
)

func TestSubstituteReplacesAllOccurrences(t *testing.T) {
	tmpl := "{{name}} starts, {{name}} continues, and {{name}} ends."
	got := substitute(tmpl, map[string]string{"name": "Ada"})
	assert.Equal(t, "Ada starts, Ada continues, and Ada ends.", got)
	assert.NotContains(t, got, "{{")
}

func TestSubstituteMissingKeyGetsSentinel(t *testing.T) {
	got := substitute("Hello {{name}}, region={{region}}.", map[string]string{"name": "Ada"})
	assert.Equal(t, "Hello Ada, region=[region not specified].", got)
	assert.NotContains(t, got, "{{region}}")
}

func TestSubstituteIgnoresUnknownKeys(t *testing.T) {
	got := substitute("just {{a}}", map[string]string{"a": "1", "unused": "x"})
	assert.Equal(t, "just 1", got)
}

func TestRenderEveryAgentHasTemplate(t *testing.T) {
	for _, agent := range models.PipelineOrder {
		out, err := Render(agent, nil, "")
		require.NoError(t, err, agent)
		assert.NotEmpty(t, out)
		assert.NotContains(t, out, "{{", "unsubstituted placeholder in %s", agent)
	}
}

func TestRenderUnknownAgent(t *testing.T) {
	_, err := Render(models.AgentType("poet"), nil, "")
	assert.Error(t, err)
}

func TestRenderFillsVariables(t *testing.T) {
	vars := []models.ContextVariable{
		{Key: "project_name", Value: "Orion"},
		{Key: "problem_statement", Value: "billing drift"},
	}
	out, err := Render(models.AgentDecisionAuthor, vars, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Project: Orion")
	assert.Contains(t, out, "billing drift")
	assert.Contains(t, out, Sentinel("stakeholders"))
}

func TestRenderConstitutionAppended(t *testing.T) {
	constitution := "All documents use British English."

	out, err := Render(models.AgentDecisionAuthor, nil, constitution)
	require.NoError(t, err)

	assert.Contains(t, out, compliancePhrase)
	assert.Contains(t, out, constitution)
	assert.NotContains(t, out, Sentinel(ReservedConstitutionKey))

	// constitution text comes after the rendered template
	assert.Greater(t, strings.Index(out, constitution), strings.Index(out, "Decision Author"))
}

func TestRenderEmptyConstitution(t *testing.T) {
	out, err := Render(models.AgentDecisionAuthor, nil, "")
	require.NoError(t, err)

	assert.NotContains(t, out, compliancePhrase)
	assert.NotContains(t, out, constitutionHeader)
	assert.Contains(t, out, Sentinel(ReservedConstitutionKey))
}

func TestRenderConstitutionVariableIsReserved(t *testing.T) {
	vars := []models.ContextVariable{{Key: ReservedConstitutionKey, Value: "spoofed"}}
	out, err := Render(models.AgentDecisionAuthor, vars, "real constitution")
	require.NoError(t, err)
	assert.NotContains(t, out, "spoofed")
	assert.Contains(t, out, "real constitution")
}

func TestRenderTemplatesWithoutReservedPlaceholder(t *testing.T) {
	// Scrum Master and Developer templates carry no reserved placeholder;
	// the constitution is still appended as a trailing section.
	out, err := Render(models.AgentScrumMaster, nil, "keep stories small")
	require.NoError(t, err)
	assert.NotContains(t, out, compliancePhrase)
	assert.Contains(t, out, "keep stories small")
}

func TestDefaultVariables(t *testing.T) {
	keys := DefaultVariables(models.AgentDecisionAuthor)
	assert.Equal(t, []string{"project_name", "problem_statement", "business_context", "stakeholders"}, keys)
	assert.NotContains(t, keys, ReservedConstitutionKey)

	assert.Nil(t, DefaultVariables(models.AgentType("poet")))
}
