package handler

import (
	"context"
	"log/slog"
	"net/http"

	"cardarb/internal/domain"
)

// HealthService defines the methods the health and metrics handlers require.
type HealthService interface {
	Check(ctx context.Context) domain.SystemHealth
	Collect(ctx context.Context) ([]domain.ComponentHealthSample, []domain.Diagnostic)
}

// HealthHandler serves the system health endpoint.
type HealthHandler struct {
	svc    HealthService
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(svc HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{svc: svc, logger: logger}
}

// Check returns the aggregated health snapshot. An unhealthy system responds
// 503 so load balancers can act on the status code alone; healthy and
// degraded both respond 200.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	snapshot := h.svc.Check(r.Context())

	status := http.StatusOK
	if snapshot.Status == domain.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snapshot)
}
