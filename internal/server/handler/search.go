package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cardarb/internal/domain"
)

// SearchService defines the methods the search handler requires.
type SearchService interface {
	Trigger(ctx context.Context, req domain.SearchRequest) (string, error)
	EstimatedCompletion(now time.Time) time.Time
}

// SearchHandler serves the on-demand card search endpoint.
type SearchHandler struct {
	svc    SearchService
	logger *slog.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(svc SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, logger: logger}
}

type searchResponse struct {
	SearchID                string `json:"search_id"`
	CardName                string `json:"card_name"`
	Status                  string `json:"status"`
	EstimatedCompletionTime string `json:"estimated_completion_time"`
}

// Trigger accepts a card search and returns 202 with the search id. The scan
// runs in the background; results show up on the opportunities endpoint and
// the WebSocket feed.
// POST /search
func (h *SearchHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	searchID, err := h.svc.Trigger(r.Context(), req)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, domain.ErrRateLimited):
			w.Header().Set("Retry-After", "300")
			writeError(w, http.StatusTooManyRequests, "card searched too recently, try again later")
		default:
			h.logger.ErrorContext(r.Context(), "handler: trigger search failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to start search")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, searchResponse{
		SearchID:                searchID,
		CardName:                strings.TrimSpace(req.CardName),
		Status:                  "accepted",
		EstimatedCompletionTime: h.svc.EstimatedCompletion(time.Now().UTC()).Format(time.RFC3339),
	})
}
