package ailink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/namelens/pitchscore/internal/ailink/content"
	"github.com/namelens/pitchscore/internal/ailink/driver"
	"github.com/namelens/pitchscore/internal/ailink/prompt"
	"github.com/namelens/pitchscore/internal/metrics"
)

const (
	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// Service coordinates prompt loading, provider selection, and driver execution.
type Service struct {
	Providers *Registry
	Registry  prompt.Registry
}

// CompleteRequest runs one prompt with variables.
type CompleteRequest struct {
	// Role selects the provider through routing; defaults to the prompt slug.
	Role       string
	PromptSlug string
	Variables  map[string]string
	Model      string
	Timeout    time.Duration
}

// CompleteResponse is the text returned by the provider.
type CompleteResponse struct {
	Text     string
	Provider string
	Model    string
	Usage    *driver.Usage
}

// NewService builds a Service from configuration, loading the embedded
// prompts plus any overrides from cfg.PromptsDir.
func NewService(cfg Config) (*Service, error) {
	reg, err := prompt.RegistryWithOverrides(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}
	return &Service{Providers: NewRegistry(cfg), Registry: reg}, nil
}

// Complete renders the prompt, routes it to a provider and returns the text.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	if s == nil || s.Providers == nil {
		return nil, &Error{Code: CodeNotConfigured, Message: "ailink provider registry not configured"}
	}
	if s.Registry == nil {
		return nil, &Error{Code: CodeNotConfigured, Message: "ailink prompt registry not configured"}
	}

	slug := strings.TrimSpace(req.PromptSlug)
	if slug == "" {
		return nil, &Error{Code: CodePromptInvalid, Message: "prompt slug is required"}
	}

	promptDef, err := s.Registry.Get(slug)
	if err != nil {
		return nil, &Error{Code: CodePromptInvalid, Message: "prompt not available", Details: err.Error(), Err: err}
	}

	systemPrompt, userPrompt, err := promptDef.Render(req.Variables)
	if err != nil {
		return nil, &Error{Code: CodePromptInvalid, Message: "prompt variables invalid", Details: err.Error(), Err: err}
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = slug
	}

	resolved, err := s.Providers.Resolve(role, promptDef, req.Model)
	if err != nil {
		return nil, &Error{Code: CodeNotConfigured, Message: "no provider available", Details: err.Error(), Err: err}
	}

	driverReq := &driver.Request{
		Model: resolved.Model,
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, systemPrompt),
			content.TextMessage(content.RoleUser, userPrompt),
		},
		Temperature: promptDef.Config.Temperature,
		MaxTokens:   promptDef.Config.MaxTokens,
		PromptSlug:  promptDef.Config.Slug,
	}
	if promptDef.Config.ResponseFormat != "" {
		driverReq.ResponseFormat = &driver.ResponseFormat{Type: promptDef.Config.ResponseFormat}
	}

	duration := s.Providers.cfg.DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if req.Timeout > 0 {
		duration = req.Timeout
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	resp, err := resolved.Driver.Complete(ctx, driverReq)
	if err != nil {
		metrics.RecordProviderCall(resolved.Driver.Name(), slug, false)
		return nil, mapProviderError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.RecordProviderCall(resolved.Driver.Name(), slug, false)
		return nil, &Error{Code: CodeProviderError, Message: "empty response content", Err: errors.New("empty response content")}
	}

	metrics.RecordProviderCall(resolved.Driver.Name(), slug, true)
	return &CompleteResponse{
		Text:     text,
		Provider: resolved.ProviderID,
		Model:    resolved.Model,
		Usage:    resp.Usage,
	}, nil
}
