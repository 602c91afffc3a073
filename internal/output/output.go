// Package output renders scoring results and history for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/namelens/pitchscore/internal/scoring"
	"github.com/namelens/pitchscore/internal/store"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders scoring output.
type Formatter interface {
	FormatResult(input scoring.ProjectInput, result *scoring.Result) (string, error)
	FormatHistory(analyses []store.Analysis) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

type scoreRow struct {
	label string
	value int
}

func scoreRows(s scoring.Scores) []scoreRow {
	return []scoreRow{
		{"Name", s.Name},
		{"Description", s.Description},
		{"Monetizability", s.Monetizability},
		{"Usefulness", s.Usefulness},
		{"Fun", s.Fun},
		{"Simplicity", s.Simplicity},
	}
}

type feedbackSection struct {
	title string
	items []string
}

func feedbackSections(f scoring.Feedback) []feedbackSection {
	return []feedbackSection{
		{"Strengths", f.Strengths},
		{"Improvements", f.Improvements},
		{"Recommendations", f.Recommendations},
	}
}

func truncate(value string, max int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
