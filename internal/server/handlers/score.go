package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/namelens/pitchscore/internal/errors"
	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/scoring"
	servermw "github.com/namelens/pitchscore/internal/server/middleware"
	"github.com/namelens/pitchscore/internal/store"
)

const (
	defaultMaxBodyBytes = 64 << 10
	historySaveTimeout  = 2 * time.Second
)

// Scorer scores a project pitch. *scoring.Orchestrator satisfies it.
type Scorer interface {
	Score(ctx context.Context, input scoring.ProjectInput) (*scoring.Result, error)
}

// HistorySaver persists completed analyses under a history key.
// *store.Store satisfies it.
type HistorySaver interface {
	SaveAnalysis(ctx context.Context, key string, a store.Analysis) error
}

// ScoreHandler serves POST /api/score. Rate limiting is applied by middleware
// before this handler runs.
type ScoreHandler struct {
	Scorer       Scorer
	History      HistorySaver
	MaxBodyBytes int64
	Now          func() time.Time
}

// ServeHTTP implements http.Handler.
func (h *ScoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	var input scoring.ProjectInput
	decoder := json.NewDecoder(io.LimitReader(r.Body, limit))
	if err := decoder.Decode(&input); err != nil {
		respondAPIError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body must be a JSON object with projectName and projectDescription."))
		return
	}

	input = input.Normalize()
	if err := input.Validate(); err != nil {
		respondAPIError(w, r, apperrors.WrapInvalidInput(r.Context(), err, validationMessage(err)))
		return
	}

	if h.Scorer == nil {
		respondAPIError(w, r, apperrors.NewInternalError(scoring.FailureMessage))
		return
	}

	result, err := h.Scorer.Score(r.Context(), input)
	if err != nil {
		env := apperrors.EnsureEnvelope(err)
		if env.Code == apperrors.CodeInvalidInput {
			respondAPIError(w, r, env)
			return
		}
		respondAPIError(w, r, apperrors.WrapInternal(r.Context(), err, scoring.FailureMessage))
		return
	}

	if h.History != nil {
		h.saveHistory(r, ensureHistoryKey(w, r), input, result)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

func (h *ScoreHandler) saveHistory(r *http.Request, key string, input scoring.ProjectInput, result *scoring.Result) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), historySaveTimeout)
	defer cancel()

	if err := h.History.SaveAnalysis(ctx, key, store.NewAnalysis(input, result, now())); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to save analysis history",
			zap.String("identity", servermw.GetIdentity(r)),
			zap.String("request_id", servermw.GetRequestID(r.Context())),
			zap.Error(err))
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, scoring.ErrNameRequired):
		return "Project name is required."
	case errors.Is(err, scoring.ErrDescriptionRequired):
		return "Project description is required."
	default:
		return strings.TrimSpace(err.Error())
	}
}
