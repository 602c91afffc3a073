package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Load parses and validates a prompt definition (markdown with YAML frontmatter).
// The markdown body becomes the system template unless one is set explicitly.
func Load(source string, data []byte) (*Prompt, error) {
	config, body, err := parseYAMLWithFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	if strings.TrimSpace(config.SystemTemplate) == "" {
		config.SystemTemplate = strings.TrimSpace(body)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}

	return &Prompt{Config: config, Source: source}, nil
}

// LoadFromDir reads all prompt files (.md with YAML frontmatter) from a directory.
func LoadFromDir(dir string) ([]*Prompt, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path) // #nosec G304 -- Prompt path is operator-provided
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		prompt, err := Load(path, data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

func parseYAMLWithFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Split(bufio.ScanLines)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
	}
	if err := lines.Err(); err != nil {
		return Config{}, "", err
	}
	if !headerSeen {
		return Config{}, "", fmt.Errorf("missing frontmatter")
	}
	if inFront {
		return Config{}, "", fmt.Errorf("unterminated frontmatter")
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
	}

	return cfg, strings.Join(body, "\n"), nil
}

func validateConfig(cfg Config) error {
	if !slugPattern.MatchString(cfg.Slug) {
		return fmt.Errorf("invalid slug %q", cfg.Slug)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		return fmt.Errorf("missing system_template")
	}
	if strings.TrimSpace(cfg.UserTemplate) == "" {
		return fmt.Errorf("missing user_template")
	}
	switch cfg.ResponseFormat {
	case "", "text", "json_object":
	default:
		return fmt.Errorf("unsupported response_format %q", cfg.ResponseFormat)
	}
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if cfg.MaxTokens != nil && *cfg.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	for _, name := range cfg.Input.RequiredVariables {
		placeholder := "{{" + name + "}}"
		if !strings.Contains(cfg.SystemTemplate, placeholder) && !strings.Contains(cfg.UserTemplate, placeholder) {
			return fmt.Errorf("required variable %q is not used by any template", name)
		}
	}
	return nil
}
