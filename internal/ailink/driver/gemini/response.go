package gemini

import (
	"fmt"

	"github.com/namelens/pitchscore/internal/ailink/content"
	"github.com/namelens/pitchscore/internal/ailink/driver"
)

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

func toDriverResponse(resp *generateContentResponse) (*driver.Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty response")
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("empty response candidates")
	}

	first := resp.Candidates[0]
	blocks := make([]content.ContentBlock, 0, len(first.Content.Parts))
	for _, p := range first.Content.Parts {
		blocks = append(blocks, content.ContentBlock{Type: content.ContentTypeText, Text: p.Text})
	}

	response := &driver.Response{
		Content:      blocks,
		FinishReason: first.FinishReason,
	}
	if resp.UsageMetadata != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return response, nil
}
