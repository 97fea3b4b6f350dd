package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"scribeflow/backend/pkg/models"
)

// ReservedConstitutionKey is the placeholder reserved for the project
// constitution. It is filled by Render itself, never from caller variables.
const ReservedConstitutionKey = "constitution"

// compliancePhrase replaces the reserved placeholder when a constitution is
// present; the full text is appended after the rendered template.
const compliancePhrase = "You must comply with the project constitution included at the end of this prompt."

// constitutionHeader separates the rendered template from the appended
// constitution text.
const constitutionHeader = "\n\n=== PROJECT CONSTITUTION ===\n"

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Sentinel returns the visible marker substituted for a placeholder with no
// supplied value. Deliberately non-empty so an unfilled slot is obvious to
// the model and to a human reviewer.
func Sentinel(key string) string {
	return fmt.Sprintf("[%s not specified]", key)
}

// Render produces the full system prompt for an agent. Every occurrence of
// a placeholder whose key appears in vars is replaced with that variable's
// value; placeholders with no matching variable are replaced with a
// sentinel. Variable keys with no matching placeholder are ignored. A
// non-empty constitution fills the reserved placeholder with a compliance
// phrase and is appended verbatim as a labeled trailing section.
//
// Pure function of its three inputs.
func Render(agent models.AgentType, vars []models.ContextVariable, constitution string) (string, error) {
	tmpl, ok := templates[agent]
	if !ok {
		return "", fmt.Errorf("no prompt template for agent type %q", agent)
	}

	values := make(map[string]string, len(vars))
	for _, v := range vars {
		if v.Key == ReservedConstitutionKey {
			continue
		}
		values[v.Key] = v.Value
	}
	if constitution != "" {
		values[ReservedConstitutionKey] = compliancePhrase
	}

	rendered := substitute(tmpl, values)

	if constitution != "" {
		rendered += constitutionHeader + constitution
	}

	return rendered, nil
}

// substitute replaces every placeholder occurrence in tmpl, falling back to
// the sentinel for keys absent from values.
func substitute(tmpl string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(m, "{{"), "}}")
		if val, ok := values[key]; ok {
			return val
		}
		return Sentinel(key)
	})
}
