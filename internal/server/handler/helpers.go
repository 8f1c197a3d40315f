package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"cardarb/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// FilterDefaults supplies the filter values applied when the request omits a
// query parameter. MaxLimit caps the limit a client may request.
type FilterDefaults struct {
	MinProfitMargin float64
	MaxRiskScore    float64
	Limit           int
	MaxLimit        int
}

// parseFilter builds an OpportunityFilter from query parameters, applying the
// configured defaults for omitted values. Unparseable values are rejected.
func parseFilter(r *http.Request, defaults FilterDefaults) (domain.OpportunityFilter, error) {
	q := r.URL.Query()

	filter := domain.OpportunityFilter{
		MinProfitMargin: decimal.NewFromFloat(defaults.MinProfitMargin),
		MaxRiskScore:    defaults.MaxRiskScore,
		SortBy:          domain.SortByProfitMargin,
		Limit:           defaults.Limit,
	}

	if v := q.Get("min_profit_margin"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filter, &domain.ValidationError{Field: "min_profit_margin", Reason: "not a number"}
		}
		filter.MinProfitMargin = d
	}

	if v := q.Get("max_risk_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, &domain.ValidationError{Field: "max_risk_score", Reason: "not a number"}
		}
		filter.MaxRiskScore = f
	}

	if v := q.Get("platform_pair"); v != "" {
		pair, err := domain.ParsePlatformPair(v)
		if err != nil {
			return filter, &domain.ValidationError{Field: "platform_pair", Reason: err.Error()}
		}
		filter.PlatformPair = &pair
	}

	if v := q.Get("sort_by"); v != "" {
		filter.SortBy = domain.SortKey(v)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, &domain.ValidationError{Field: "limit", Reason: "must be a positive integer"}
		}
		filter.Limit = n
	}
	if defaults.MaxLimit > 0 && filter.Limit > defaults.MaxLimit {
		filter.Limit = defaults.MaxLimit
	}

	return filter, filter.Validate()
}
