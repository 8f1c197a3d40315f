package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"cardarb/internal/domain"
)

// OpportunityService defines the methods the opportunities handler requires.
type OpportunityService interface {
	List(ctx context.Context, filter domain.OpportunityFilter) ([]domain.ArbitrageOpportunity, []domain.Diagnostic, error)
	ListByCard(ctx context.Context, cardName string, filter domain.OpportunityFilter) ([]domain.ArbitrageOpportunity, []domain.Diagnostic, error)
	Get(ctx context.Context, id string) (domain.ArbitrageOpportunity, error)
}

// OpportunityHandler serves the opportunity listing and detail endpoints.
type OpportunityHandler struct {
	svc      OpportunityService
	defaults FilterDefaults
	logger   *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(svc OpportunityService, defaults FilterDefaults, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{svc: svc, defaults: defaults, logger: logger}
}

// listResponse wraps an opportunity page. Diagnostics report input records
// that were excluded while the rest of the page was computed.
type listResponse struct {
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
	Count         int                           `json:"count"`
	Diagnostics   []domain.Diagnostic           `json:"diagnostics,omitempty"`
}

// List returns the current ranked opportunity page.
// GET /opportunities?min_profit_margin=0.1&max_risk_score=3&platform_pair=tcgplayer-to-ebay&sort_by=profit_margin&limit=50&card_name=...
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, h.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		opps  []domain.ArbitrageOpportunity
		diags []domain.Diagnostic
	)
	if card := r.URL.Query().Get("card_name"); card != "" {
		opps, diags, err = h.svc.ListByCard(r.Context(), card, filter)
	} else {
		opps, diags, err = h.svc.List(r.Context(), filter)
	}
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Opportunities: opps,
		Count:         len(opps),
		Diagnostics:   diags,
	})
}

// Get returns a single persisted opportunity by id.
// GET /opportunities/{id}
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity id")
		return
	}

	opp, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get opportunity failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get opportunity")
		return
	}
	writeJSON(w, http.StatusOK, opp)
}
