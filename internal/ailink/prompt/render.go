package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Render substitutes {{var}} placeholders in the system and user templates.
// Every required variable must be present and non-blank. Unknown placeholders
// are left untouched.
func (p *Prompt) Render(vars map[string]string) (system string, user string, err error) {
	if p == nil {
		return "", "", fmt.Errorf("prompt is required")
	}

	var missing []string
	for _, name := range p.Config.Input.RequiredVariables {
		if strings.TrimSpace(vars[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", "", fmt.Errorf("prompt %s: missing variables: %s", p.Config.Slug, strings.Join(missing, ", "))
	}

	system = applyVars(p.Config.SystemTemplate, vars)
	user = applyVars(p.Config.UserTemplate, vars)
	return strings.TrimSpace(system), strings.TrimSpace(user), nil
}

func applyVars(template string, vars map[string]string) string {
	if template == "" || len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
