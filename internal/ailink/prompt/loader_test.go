package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.Len(t, prompts, 2)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	score, err := reg.Get(SlugProjectScore)
	require.NoError(t, err)
	require.NotEmpty(t, score.Config.SystemTemplate)
	require.Equal(t, "text", score.Config.ResponseFormat)

	feedback, err := reg.Get(SlugProjectFeedback)
	require.NoError(t, err)
	require.Equal(t, "json_object", feedback.Config.ResponseFormat)
	require.Contains(t, feedback.Config.SystemTemplate, "overallFeedback")
}

func TestRender(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	p, err := reg.Get(SlugProjectScore)
	require.NoError(t, err)

	system, user, err := p.Render(map[string]string{
		"dimension":           "fun",
		"criteria":            "How enjoyable it is",
		"project_name":        "Tiny Garden",
		"project_description": "A pocket garden planner",
	})
	require.NoError(t, err)
	require.Contains(t, system, "Dimension: fun")
	require.Contains(t, user, "Project name: Tiny Garden")
	require.NotContains(t, user, "{{")

	_, _, err = p.Render(map[string]string{"dimension": "fun"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "criteria, project_description, project_name")
}

func TestLoadRejectsInvalidPrompts(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "empty", data: "  ", want: "empty prompt"},
		{name: "no frontmatter", data: "slug: x", want: "missing frontmatter"},
		{name: "unterminated", data: "---\nslug: x\n", want: "unterminated"},
		{name: "bad slug", data: "---\nslug: Bad Slug\nuser_template: u\n---\nbody", want: "invalid slug"},
		{name: "no user template", data: "---\nslug: ok\n---\nbody", want: "user_template"},
		{name: "bad format", data: "---\nslug: ok\nuser_template: u\nresponse_format: xml\n---\nbody", want: "response_format"},
		{name: "unused variable", data: "---\nslug: ok\nuser_template: u\ninput:\n  required_variables: [x]\n---\nbody", want: `"x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.name, []byte(tt.data))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistryWithOverrides(t *testing.T) {
	dir := t.TempDir()
	override := "---\nslug: project-feedback\nuser_template: \"{{project_name}}\"\nresponse_format: json_object\n---\nCustom feedback instructions."
	extra := "---\nslug: project-tagline\nuser_template: \"{{project_name}}\"\n---\nWrite a tagline."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feedback.md"), []byte(override), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tagline.md"), []byte(extra), 0o600))

	reg, err := RegistryWithOverrides(dir)
	require.NoError(t, err)
	require.Len(t, reg.List(), 3)

	p, err := reg.Get(SlugProjectFeedback)
	require.NoError(t, err)
	require.Equal(t, "Custom feedback instructions.", p.Config.SystemTemplate)

	_, err = reg.Get(SlugProjectScore)
	require.NoError(t, err)
}

func TestPreferredModels(t *testing.T) {
	p := &Prompt{Config: Config{ProviderHints: map[string]any{"preferred_models": []any{"gemini-2.0-flash", 3, ""}}}}
	require.Equal(t, []string{"gemini-2.0-flash"}, p.PreferredModels())

	p.Config.ProviderHints["preferred_models"] = "gpt-4o-mini"
	require.Equal(t, []string{"gpt-4o-mini"}, p.PreferredModels())

	var nilPrompt *Prompt
	require.Nil(t, nilPrompt.PreferredModels())
}
