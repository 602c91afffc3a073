package driver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/pitchscore/internal/ailink/content"
)

type countingDriver struct{ calls atomic.Int32 }

func (d *countingDriver) Name() string { return "counting" }

func (d *countingDriver) Complete(context.Context, *Request) (*Response, error) {
	d.calls.Add(1)
	return &Response{Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: "42"}}}, nil
}

func TestNewPacedDisabled(t *testing.T) {
	inner := &countingDriver{}
	require.Same(t, Driver(inner), NewPaced(inner, 0, 5))
}

func TestPacedDelegates(t *testing.T) {
	inner := &countingDriver{}
	paced := NewPaced(inner, 100, 2)
	require.Equal(t, "counting", paced.Name())

	resp, err := paced.Complete(context.Background(), &Request{})
	require.NoError(t, err)
	require.Equal(t, "42", resp.Text())
	require.EqualValues(t, 1, inner.calls.Load())
	require.Same(t, Driver(inner), paced.(*Paced).Unwrap())
}

func TestPacedRespectsContext(t *testing.T) {
	inner := &countingDriver{}
	paced := NewPaced(inner, 0.001, 1)

	_, err := paced.Complete(context.Background(), &Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = paced.Complete(ctx, &Request{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "counting pacing")
	require.EqualValues(t, 1, inner.calls.Load())
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Provider: "gemini", StatusCode: 429, Message: "slow down"}
	require.Equal(t, "gemini request failed: status 429: slow down", err.Error())
	require.True(t, err.Throttled())

	var nilErr *ProviderError
	require.Equal(t, "provider error", nilErr.Error())
	require.False(t, nilErr.Throttled())
}

func TestResponseText(t *testing.T) {
	var resp *Response
	require.Equal(t, "", resp.Text())
	require.True(t, (&Request{ResponseFormat: &ResponseFormat{Type: "json_object"}}).WantsJSON())
	require.False(t, (&Request{}).WantsJSON())
}
