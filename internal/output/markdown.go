package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/namelens/pitchscore/internal/scoring"
	"github.com/namelens/pitchscore/internal/store"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatResult renders a scoring result as Markdown.
func (f *MarkdownFormatter) FormatResult(input scoring.ProjectInput, result *scoring.Result) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(input.Name)))
	sb.WriteString("| Dimension | Score |\n")
	sb.WriteString("|-----------|------:|\n")
	for _, row := range scoreRows(result.Scores) {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.label, row.value))
	}
	sb.WriteString(fmt.Sprintf("\n**Average**: %d\n", result.Average()))

	for _, section := range feedbackSections(result.Feedback) {
		if len(section.items) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n### %s\n\n", section.title))
		for _, item := range section.items {
			sb.WriteString("- " + item + "\n")
		}
	}
	if overall := strings.TrimSpace(result.Feedback.OverallFeedback); overall != "" {
		sb.WriteString("\n" + overall + "\n")
	}
	return sb.String(), nil
}

// FormatHistory renders analyses as a Markdown table.
func (f *MarkdownFormatter) FormatHistory(analyses []store.Analysis) (string, error) {
	var sb strings.Builder
	sb.WriteString("| When | Project | Name | Desc | Money | Useful | Fun | Simple | Avg |\n")
	sb.WriteString("|------|---------|-----:|-----:|------:|-------:|----:|-------:|----:|\n")
	for _, a := range analyses {
		s := a.Scores
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d | %d | %d |\n",
			a.Timestamp.UTC().Format(time.RFC3339),
			escapeMarkdownCell(truncate(a.ProjectName, 48)),
			s.Name, s.Description, s.Monetizability, s.Usefulness, s.Fun, s.Simplicity, s.Average()))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}
