package handler

import (
	"log/slog"
	"net/http"
	"time"

	"cardarb/internal/domain"
)

// MetricsHandler serves raw infrastructure samples for dashboards that want
// the numbers behind the health verdict.
type MetricsHandler struct {
	svc    HealthService
	logger *slog.Logger
}

// NewMetricsHandler creates a MetricsHandler.
func NewMetricsHandler(svc HealthService, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{svc: svc, logger: logger}
}

type metricsResponse struct {
	Compute     []domain.ComponentHealthSample `json:"compute"`
	Storage     []domain.ComponentHealthSample `json:"storage"`
	Gateway     []domain.ComponentHealthSample `json:"gateway"`
	Workflow    []domain.ComponentHealthSample `json:"workflow"`
	Diagnostics []domain.Diagnostic            `json:"diagnostics,omitempty"`
	LastUpdated string                         `json:"last_updated"`
}

// Collect returns the latest raw samples grouped by resource kind.
// GET /metrics
func (h *MetricsHandler) Collect(w http.ResponseWriter, r *http.Request) {
	samples, diags := h.svc.Collect(r.Context())

	resp := metricsResponse{
		Compute:     []domain.ComponentHealthSample{},
		Storage:     []domain.ComponentHealthSample{},
		Gateway:     []domain.ComponentHealthSample{},
		Workflow:    []domain.ComponentHealthSample{},
		Diagnostics: diags,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	for _, s := range samples {
		switch s.Kind {
		case domain.ResourceCompute:
			resp.Compute = append(resp.Compute, s)
		case domain.ResourceStorage:
			resp.Storage = append(resp.Storage, s)
		case domain.ResourceGateway:
			resp.Gateway = append(resp.Gateway, s)
		case domain.ResourceWorkflow:
			resp.Workflow = append(resp.Workflow, s)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
