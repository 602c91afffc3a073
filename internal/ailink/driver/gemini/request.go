package gemini

import (
	"fmt"
	"strings"

	"github.com/namelens/pitchscore/internal/ailink/content"
	"github.com/namelens/pitchscore/internal/ailink/driver"
)

type generateContentRequest struct {
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	Contents          []geminiContent   `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

func buildGenerateRequest(req *driver.Request) (*generateContentRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := &generateContentRequest{}
	var system []string
	for _, msg := range req.Messages {
		text := content.JoinText(msg.Content)
		switch msg.Role {
		case content.RoleSystem:
			system = append(system, text)
		case content.RoleAssistant:
			payload.Contents = append(payload.Contents, geminiContent{Role: "model", Parts: []part{{Text: text}}})
		default:
			payload.Contents = append(payload.Contents, geminiContent{Role: "user", Parts: []part{{Text: text}}})
		}
	}
	if len(payload.Contents) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}
	if len(system) > 0 {
		payload.SystemInstruction = &geminiContent{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}

	if req.Temperature != nil || req.MaxTokens != nil || req.WantsJSON() {
		cfg := &generationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
		if req.WantsJSON() {
			cfg.ResponseMimeType = string(content.ContentTypeJSON)
		}
		payload.GenerationConfig = cfg
	}

	return payload, nil
}
