package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/metrics"
	"github.com/namelens/pitchscore/internal/observability"
)

// panicMessage is the only panic text that reaches clients.
const panicMessage = "An unexpected error occurred. Please try again."

// Recovery middleware recovers from panics, logs the stack and answers 500.
// Routes under /api/ get the flat {"error": "..."} body the browser client
// expects; everything else gets the nested envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", panicMessage).
					WithCorrelationID(GetRequestID(r.Context()))
				panicErr, _ = panicErr.WithSeverity(errors.SeverityCritical)

				metrics.RecordPanic()
				if observability.ServerLogger != nil {
					observability.ServerLogger.Error("Recovered from panic",
						zap.String("panic", fmt.Sprint(rec)),
						zap.String("path", r.URL.Path),
						zap.String("request_id", panicErr.CorrelationID),
						zap.String("stack_trace", string(debug.Stack())),
					)
				}

				if strings.HasPrefix(r.URL.Path, "/api/") {
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": panicMessage})
					return
				}
				writeErrorResponse(w, panicErr, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorResponse structure per API standards
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// writeErrorResponse writes the envelope directly; internal/errors imports
// this package so it cannot be used here.
func writeErrorResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			RequestID: envelope.CorrelationID,
		},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
