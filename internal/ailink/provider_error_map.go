package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/namelens/pitchscore/internal/ailink/driver"
)

// Error codes reported by Service.Complete.
const (
	CodeProviderTimeout     = "AILINK_PROVIDER_TIMEOUT"
	CodeProviderAuth        = "AILINK_PROVIDER_AUTH"
	CodeProviderRateLimit   = "AILINK_PROVIDER_RATE_LIMIT"
	CodeProviderUnavailable = "AILINK_PROVIDER_UNAVAILABLE"
	CodeProviderBadRequest  = "AILINK_PROVIDER_BAD_REQUEST"
	CodeProviderError       = "AILINK_PROVIDER_ERROR"
	CodeNotConfigured       = "AILINK_NOT_CONFIGURED"
	CodePromptInvalid       = "AILINK_PROMPT_INVALID"
)

// Error is a classified AILink failure. Details may contain provider text and
// must not be shown to end users.
type Error struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "ailink error"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func mapProviderError(err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeProviderTimeout, Message: "provider request timed out", Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		switch {
		case status == 401 || status == 403:
			return &Error{Code: CodeProviderAuth, Message: "provider authentication failed", Details: details, Err: err}
		case perr.Throttled():
			return &Error{Code: CodeProviderRateLimit, Message: "provider rate limited", Details: details, Err: err}
		case status >= 500 && status <= 599:
			return &Error{Code: CodeProviderUnavailable, Message: "provider unavailable", Details: details, Err: err}
		case status >= 400 && status <= 499:
			return &Error{Code: CodeProviderBadRequest, Message: "provider rejected request", Details: details, Err: err}
		default:
			return &Error{Code: CodeProviderError, Message: "provider request failed", Details: details, Err: err}
		}
	}

	return &Error{Code: CodeProviderError, Message: "provider request failed", Details: err.Error(), Err: err}
}
