package output

import (
	"encoding/json"

	"github.com/namelens/pitchscore/internal/scoring"
	"github.com/namelens/pitchscore/internal/store"
)

// JSONFormatter renders results with the same shape the HTTP API returns.
type JSONFormatter struct {
	Indent bool
}

// FormatResult renders a scoring result as JSON.
func (f *JSONFormatter) FormatResult(_ scoring.ProjectInput, result *scoring.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatHistory renders analyses as {"analyses": [...]}.
func (f *JSONFormatter) FormatHistory(analyses []store.Analysis) (string, error) {
	if analyses == nil {
		analyses = []store.Analysis{}
	}
	return f.marshal(struct {
		Analyses []store.Analysis `json:"analyses"`
	}{analyses})
}

func (f *JSONFormatter) marshal(v interface{}) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
