package ailink

import "time"

// Config defines provider configuration for AILink.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptsDir overrides or extends the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Providers is a set of provider instances keyed by a user-defined id (slug).
	// Each instance declares its underlying provider type via AIProvider.
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`

	// Routing maps a role (e.g. "scoring", "feedback") to a provider id.
	Routing map[string]string `mapstructure:"routing"`
}

// ProviderInstanceConfig defines a configured provider instance (e.g. "pitchscore-gemini").
type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// AIProvider is the provider type/driver identifier ("gemini" or "openai").
	AIProvider string `mapstructure:"ai_provider"`

	// SelectionPolicy controls which credential is chosen.
	// Supported values: "priority" (default), "round_robin".
	SelectionPolicy string `mapstructure:"selection_policy"`

	// DefaultCredential, if set, forces selecting the matching credential label.
	// If missing/invalid, selection falls back to SelectionPolicy.
	DefaultCredential string `mapstructure:"default_credential"`

	BaseURL string            `mapstructure:"base_url"`
	Models  map[string]string `mapstructure:"models"`
	Roles   []string          `mapstructure:"roles"`

	// Pacing throttles outbound calls per credential. Zero disables it.
	Pacing PacingConfig `mapstructure:"pacing"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

// PacingConfig is a token bucket applied in front of a provider driver.
type PacingConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CredentialConfig is a single credential for a provider instance.
//
// Multiple credentials enable key rotation and per-key quota spreading.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}

// Configured reports whether at least one enabled provider has a usable key.
func (c Config) Configured() bool {
	for _, p := range c.Providers {
		if !p.Enabled {
			continue
		}
		for _, cred := range p.Credentials {
			if cred.APIKey != "" && (cred.Enabled || cred.Label == "") {
				return true
			}
		}
	}
	return false
}
