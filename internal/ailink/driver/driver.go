// Package driver defines the provider-agnostic completion contract and the
// wrappers shared by every provider implementation.
package driver

import (
	"context"

	"github.com/namelens/pitchscore/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}

// Text returns the concatenated text content of the response.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return content.JoinText(r.Content)
}

// WantsJSON reports whether the request asked for a JSON object response.
func (r *Request) WantsJSON() bool {
	return r != nil && r.ResponseFormat != nil && r.ResponseFormat.Type == "json_object"
}
