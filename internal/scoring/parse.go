package scoring

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const (
	minScore       = 0
	maxScore       = 100
	maxListEntries = 3
)

// integerPattern matches a standalone integer. Digits glued to a preceding
// word or hyphen ("Project-2", "v3") are not scores.
var integerPattern = regexp.MustCompile(`(?:^|[^\w-])(-?\d+)`)

// Canned feedback used when the model omits or garbles a section.
var (
	DefaultStrengths       = []string{"The project has a clear core idea."}
	DefaultImprovements    = []string{"Describe the target audience in more detail."}
	DefaultRecommendations = []string{"Build a small prototype and share it with a few users."}
	DefaultOverallFeedback = "A promising idea that would benefit from a sharper pitch."
)

// ParseScore extracts the first integer from model output and clamps it to
// 0-100. Output without any integer scores 0.
func ParseScore(text string) int {
	groups := integerPattern.FindStringSubmatch(text)
	if groups == nil {
		return minScore
	}
	match := groups[1]
	value, err := strconv.Atoi(match)
	if err != nil {
		if strings.HasPrefix(match, "-") {
			return minScore
		}
		return maxScore
	}
	switch {
	case value < minScore:
		return minScore
	case value > maxScore:
		return maxScore
	default:
		return value
	}
}

// ParseFeedback decodes the feedback JSON object. Markdown fences and text
// around the object are tolerated. Missing sections fall back to defaults.
func ParseFeedback(text string) Feedback {
	var raw struct {
		Strengths       []string `json:"strengths"`
		Improvements    []string `json:"improvements"`
		Recommendations []string `json:"recommendations"`
		OverallFeedback string   `json:"overallFeedback"`
	}
	if payload := extractObject(text); payload != "" {
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			raw.Strengths, raw.Improvements, raw.Recommendations, raw.OverallFeedback = nil, nil, nil, ""
		}
	}

	overall := strings.TrimSpace(raw.OverallFeedback)
	if overall == "" {
		overall = DefaultOverallFeedback
	}
	return Feedback{
		Strengths:       cleanList(raw.Strengths, DefaultStrengths),
		Improvements:    cleanList(raw.Improvements, DefaultImprovements),
		Recommendations: cleanList(raw.Recommendations, DefaultRecommendations),
		OverallFeedback: overall,
	}
}

// DefaultFeedback returns a fully canned Feedback.
func DefaultFeedback() Feedback {
	return ParseFeedback("")
}

func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func cleanList(items []string, fallback []string) []string {
	out := make([]string, 0, maxListEntries)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == maxListEntries {
			break
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
