package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openAIServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server
}

func openAIConfig(baseURL string) Config {
	return Config{
		DefaultTimeout: 5 * time.Second,
		Providers: map[string]ProviderInstanceConfig{
			"test": {
				Enabled:     true,
				AIProvider:  "openai",
				BaseURL:     baseURL,
				Models:      map[string]string{"default": "gpt-test"},
				Credentials: []CredentialConfig{{APIKey: "k"}},
			},
		},
	}
}

var scoreVars = map[string]string{
	"dimension":           "name",
	"criteria":            "Memorable and clear",
	"project_name":        "Tiny Garden",
	"project_description": "A pocket garden planner",
}

func TestServiceCompleteReturnsText(t *testing.T) {
	server := openAIServer(t, http.StatusOK, `{"choices":[{"message":{"content":" 82 "},"finish_reason":"stop"}]}`)
	svc, err := NewService(openAIConfig(server.URL))
	require.NoError(t, err)

	resp, err := svc.Complete(context.Background(), CompleteRequest{Role: "scoring", PromptSlug: "project-score", Variables: scoreVars})
	require.NoError(t, err)
	require.Equal(t, "82", resp.Text)
	require.Equal(t, "test", resp.Provider)
	require.Equal(t, "gpt-test", resp.Model)
}

func TestServiceCompleteMapsProviderErrors(t *testing.T) {
	server := openAIServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
	svc, err := NewService(openAIConfig(server.URL))
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), CompleteRequest{PromptSlug: "project-score", Variables: scoreVars})
	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	require.Equal(t, CodeProviderRateLimit, aerr.Code)
}

func TestServiceCompleteEmptyContent(t *testing.T) {
	server := openAIServer(t, http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`)
	svc, err := NewService(openAIConfig(server.URL))
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), CompleteRequest{PromptSlug: "project-score", Variables: scoreVars})
	require.ErrorContains(t, err, "empty response content")
}

func TestServiceCompleteValidatesInput(t *testing.T) {
	svc, err := NewService(openAIConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), CompleteRequest{})
	require.ErrorContains(t, err, "prompt slug is required")

	_, err = svc.Complete(context.Background(), CompleteRequest{PromptSlug: "missing"})
	require.ErrorContains(t, err, "prompt not available")

	_, err = svc.Complete(context.Background(), CompleteRequest{PromptSlug: "project-feedback", Variables: map[string]string{"project_name": "x"}})
	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	require.Equal(t, CodePromptInvalid, aerr.Code)

	var nilSvc *Service
	_, err = nilSvc.Complete(context.Background(), CompleteRequest{PromptSlug: "project-score"})
	require.ErrorContains(t, err, CodeNotConfigured)
}

func TestServiceCompleteWithoutProviders(t *testing.T) {
	svc, err := NewService(Config{})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), CompleteRequest{PromptSlug: "project-score", Variables: scoreVars})
	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	require.Equal(t, CodeNotConfigured, aerr.Code)
}
