package prompt

import (
	"embed"
	"fmt"
	"strings"
)

// Built-in prompt slugs.
const (
	SlugProjectScore    = "project-score"
	SlugProjectFeedback = "project-feedback"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		prompt, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

// DefaultRegistry builds a registry from embedded prompts.
func DefaultRegistry() (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(prompts)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// RegistryWithOverrides builds the embedded registry and replaces or adds any
// prompts found in dir. An empty dir yields the defaults.
func RegistryWithOverrides(dir string) (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(prompts)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return reg, nil
	}

	overrides, err := LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	if err := reg.Override(overrides); err != nil {
		return nil, err
	}
	return reg, nil
}
