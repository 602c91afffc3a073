package scoring

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/pitchscore/internal/ailink"
	apperrors "github.com/namelens/pitchscore/internal/errors"
)

type fakeCompleter struct {
	mu       sync.Mutex
	requests []ailink.CompleteRequest
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	reply    func(req ailink.CompleteRequest) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, req ailink.CompleteRequest) (*ailink.CompleteResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	text, err := f.reply(req)
	if err != nil {
		return nil, err
	}
	return &ailink.CompleteResponse{Text: text, Provider: "fake", Model: "fake-1"}, nil
}

func dimensionReplies(req ailink.CompleteRequest) (string, error) {
	if req.PromptSlug == "project-feedback" {
		return `{"strengths":["Clear"],"improvements":["Scope"],"recommendations":["Ship"],"overallFeedback":"Nice."}`, nil
	}
	switch req.Variables["dimension"] {
	case "name":
		return "81", nil
	case "description":
		return "72", nil
	case "monetizability":
		return "Score: 40", nil
	case "usefulness":
		return "120", nil
	case "fun":
		return "no idea", nil
	default:
		return "55", nil
	}
}

func TestOrchestratorScore(t *testing.T) {
	ai := &fakeCompleter{reply: dimensionReplies, delay: 20 * time.Millisecond}
	o := NewOrchestrator(ai, Options{})

	result, err := o.Score(context.Background(), ProjectInput{Name: " Tiny Garden ", Description: "A pocket garden planner"})
	require.NoError(t, err)

	assert.Equal(t, Scores{Name: 81, Description: 72, Monetizability: 40, Usefulness: 100, Fun: 0, Simplicity: 55}, result.Scores)
	assert.Equal(t, Feedback{
		Strengths:       []string{"Clear"},
		Improvements:    []string{"Scope"},
		Recommendations: []string{"Ship"},
		OverallFeedback: "Nice.",
	}, result.Feedback)

	require.Len(t, ai.requests, 7)
	assert.Greater(t, ai.peak.Load(), int32(1), "calls should overlap")

	var feedbackCalls int
	for _, req := range ai.requests {
		assert.Equal(t, "Tiny Garden", req.Variables["project_name"])
		if req.PromptSlug == "project-feedback" {
			feedbackCalls++
			assert.Equal(t, "feedback", req.Role)
			continue
		}
		assert.Equal(t, "project-score", req.PromptSlug)
		assert.Equal(t, "scoring", req.Role)
		assert.NotEmpty(t, req.Variables["criteria"])
	}
	assert.Equal(t, 1, feedbackCalls)
}

func TestOrchestratorFailsWholeRequestOnAnyError(t *testing.T) {
	ai := &fakeCompleter{reply: func(req ailink.CompleteRequest) (string, error) {
		if req.Variables["dimension"] == "fun" {
			return "", &ailink.Error{Code: ailink.CodeProviderUnavailable, Message: "provider unavailable"}
		}
		return dimensionReplies(req)
	}}
	o := NewOrchestrator(ai, Options{})

	result, err := o.Score(context.Background(), ProjectInput{Name: "n", Description: "d"})
	require.Error(t, err)
	assert.Nil(t, result)

	env := apperrors.EnsureEnvelope(err)
	assert.Equal(t, apperrors.CodeExternalService, env.Code)
	assert.Equal(t, FailureMessage, env.Message)
}

func TestOrchestratorFeedbackFailureFailsRequest(t *testing.T) {
	ai := &fakeCompleter{reply: func(req ailink.CompleteRequest) (string, error) {
		if req.PromptSlug == "project-feedback" {
			return "", errors.New("boom")
		}
		return "50", nil
	}}

	_, err := NewOrchestrator(ai, Options{}).Score(context.Background(), ProjectInput{Name: "n", Description: "d"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExternalService, apperrors.EnsureEnvelope(err).Code)
}

func TestOrchestratorTimeout(t *testing.T) {
	ai := &fakeCompleter{reply: dimensionReplies, delay: time.Second}
	o := NewOrchestrator(ai, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := o.Score(context.Background(), ProjectInput{Name: "n", Description: "d"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestOrchestratorRejectsBlankInput(t *testing.T) {
	ai := &fakeCompleter{reply: dimensionReplies}
	o := NewOrchestrator(ai, Options{})

	_, err := o.Score(context.Background(), ProjectInput{Name: "   ", Description: "d"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.EnsureEnvelope(err).Code)
	assert.Empty(t, ai.requests)
}

func TestOrchestratorWithoutCompleter(t *testing.T) {
	_, err := NewOrchestrator(nil, Options{}).Score(context.Background(), ProjectInput{Name: "n", Description: "d"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeServiceUnavailable, apperrors.EnsureEnvelope(err).Code)
}
