package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/namelens/pitchscore/internal/scoring"
	"github.com/namelens/pitchscore/internal/store"
)

// TableFormatter renders results as ASCII tables.
type TableFormatter struct{}

// newTable returns a rounded table whose footer keeps its original casing.
func newTable() table.Writer {
	t := newTable()
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// FormatResult renders the six scores followed by the written feedback.
func (f *TableFormatter) FormatResult(input scoring.ProjectInput, result *scoring.Result) (string, error) {
	if result == nil {
		return "", nil
	}

	t := newTable()
	t.SetTitle(input.Name)
	t.AppendHeader(table.Row{"Dimension", "Score"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight}})
	for _, row := range scoreRows(result.Scores) {
		t.AppendRow(table.Row{row.label, row.value})
	}
	t.AppendFooter(table.Row{"Average", result.Average()})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n")

	for _, section := range feedbackSections(result.Feedback) {
		if len(section.items) == 0 {
			continue
		}
		sb.WriteString("\n" + section.title + ":\n")
		for _, item := range section.items {
			sb.WriteString("  - " + item + "\n")
		}
	}
	if overall := strings.TrimSpace(result.Feedback.OverallFeedback); overall != "" {
		sb.WriteString("\n" + overall + "\n")
	}
	return sb.String(), nil
}

// FormatHistory renders one row per stored analysis.
func (f *TableFormatter) FormatHistory(analyses []store.Analysis) (string, error) {
	if len(analyses) == 0 {
		return "No analyses recorded.", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"When", "Project", "Name", "Desc", "Money", "Useful", "Fun", "Simple", "Avg"})
	for _, a := range analyses {
		s := a.Scores
		t.AppendRow(table.Row{
			a.Timestamp.Local().Format(time.DateTime),
			truncate(a.ProjectName, 32),
			s.Name, s.Description, s.Monetizability, s.Usefulness, s.Fun, s.Simplicity,
			s.Average(),
		})
	}
	noun := "analyses"
	if len(analyses) == 1 {
		noun = "analysis"
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d %s", len(analyses), noun)})
	return t.Render(), nil
}
