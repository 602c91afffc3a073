package prompt

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug           string         `yaml:"slug" json:"slug"`
	Name           string         `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string         `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string         `yaml:"version,omitempty" json:"version,omitempty"`
	Input          InputSpec      `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string         `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string         `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	ResponseFormat string         `yaml:"response_format,omitempty" json:"response_format,omitempty"`
	Temperature    *float64       `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens      *int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	ProviderHints  map[string]any `yaml:"provider_hints,omitempty" json:"provider_hints,omitempty"`
}

// InputSpec defines prompt input requirements.
type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}

// PreferredModels returns provider_hints.preferred_models as a string slice.
func (p *Prompt) PreferredModels() []string {
	if p == nil {
		return nil
	}
	value, ok := p.Config.ProviderHints["preferred_models"]
	if !ok || value == nil {
		return nil
	}

	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		models := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok && s != "" {
				models = append(models, s)
			}
		}
		return models
	case string:
		if typed == "" {
			return nil
		}
		return []string{typed}
	default:
		return nil
	}
}
