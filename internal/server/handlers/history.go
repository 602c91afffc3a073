package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "github.com/namelens/pitchscore/internal/errors"
	"github.com/namelens/pitchscore/internal/store"
)

// HistoryLister reads stored analyses. *store.Store satisfies it.
type HistoryLister interface {
	ListAnalyses(ctx context.Context, key string, limit int) ([]store.Analysis, error)
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Analyses []store.Analysis `json:"analyses"`
}

// HistoryHandler serves GET /api/history for the history key the caller
// presents. Callers without a key get an empty list.
type HistoryHandler struct {
	Store HistoryLister
	Limit int
}

// ServeHTTP implements http.Handler.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		respondAPIError(w, r, apperrors.NewNotFoundError("History is not enabled."))
		return
	}

	var analyses []store.Analysis
	if key, ok := HistoryKeyFrom(r); ok {
		var err error
		analyses, err = h.Store.ListAnalyses(r.Context(), key, h.Limit)
		if err != nil {
			respondAPIError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to load history. Please try again."))
			return
		}
	}
	if analyses == nil {
		analyses = []store.Analysis{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HistoryResponse{Analyses: analyses})
}
