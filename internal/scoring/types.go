// Package scoring rates a project pitch on six dimensions and collects
// written feedback from an AI provider.
package scoring

import "strings"

// ProjectInput is the pitch being scored.
type ProjectInput struct {
	Name        string `json:"projectName"`
	Description string `json:"projectDescription"`
}

// Normalize trims surrounding whitespace from both fields.
func (p ProjectInput) Normalize() ProjectInput {
	return ProjectInput{
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
	}
}

// Validate reports the first missing field after trimming.
func (p ProjectInput) Validate() error {
	n := p.Normalize()
	if n.Name == "" {
		return ErrNameRequired
	}
	if n.Description == "" {
		return ErrDescriptionRequired
	}
	return nil
}

// Dimension is one scored aspect of a pitch.
type Dimension struct {
	Key      string
	Label    string
	Criteria string
}

// Dimensions lists the scored aspects in response order.
var Dimensions = []Dimension{
	{Key: "name", Label: "name", Criteria: "How memorable, clear and fitting the project name is."},
	{Key: "description", Label: "description", Criteria: "How clearly the description explains the problem, the audience and the solution."},
	{Key: "monetizability", Label: "monetizability", Criteria: "How plausible it is to earn money from the project."},
	{Key: "usefulness", Label: "usefulness", Criteria: "How much real value the project gives its users."},
	{Key: "fun", Label: "fun", Criteria: "How enjoyable the project is to use or build."},
	{Key: "simplicity", Label: "simplicity", Criteria: "How small and easy to build and explain the project is."},
}

// Scores holds one 0-100 value per dimension.
type Scores struct {
	Name           int `json:"nameScore"`
	Description    int `json:"descriptionScore"`
	Monetizability int `json:"monetizabilityScore"`
	Usefulness     int `json:"usefulnessScore"`
	Fun            int `json:"funScore"`
	Simplicity     int `json:"simplicityScore"`
}

// Set assigns the score for a dimension key. Unknown keys are ignored.
func (s *Scores) Set(key string, value int) {
	switch key {
	case "name":
		s.Name = value
	case "description":
		s.Description = value
	case "monetizability":
		s.Monetizability = value
	case "usefulness":
		s.Usefulness = value
	case "fun":
		s.Fun = value
	case "simplicity":
		s.Simplicity = value
	}
}

// Average returns the integer mean of all six scores.
func (s Scores) Average() int {
	return (s.Name + s.Description + s.Monetizability + s.Usefulness + s.Fun + s.Simplicity) / 6
}

// Feedback is the written review of a pitch.
type Feedback struct {
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
	OverallFeedback string   `json:"overallFeedback"`
}

// Result is the full scoring response.
type Result struct {
	Scores
	Feedback Feedback `json:"feedback"`
}
