package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/domain"
)

type stubHealthService struct {
	snapshot domain.SystemHealth
	samples  []domain.ComponentHealthSample
	diags    []domain.Diagnostic
}

func (s *stubHealthService) Check(context.Context) domain.SystemHealth {
	return s.snapshot
}

func (s *stubHealthService) Collect(context.Context) ([]domain.ComponentHealthSample, []domain.Diagnostic) {
	return s.samples, s.diags
}

func TestHealthCheckDegradedStillResponds200(t *testing.T) {
	svc := &stubHealthService{snapshot: domain.SystemHealth{
		Status:    domain.StatusDegraded,
		Timestamp: time.Now().UTC(),
		Version:   "1.2.3",
		Components: []domain.ComponentHealth{
			{ResourceID: "scan-fn", Kind: domain.ResourceCompute, Severity: domain.SeverityWarning},
		},
	}}
	h := NewHealthHandler(svc, slog.Default())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.SystemHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusDegraded, got.Status)
	assert.Equal(t, "1.2.3", got.Version)
	require.Len(t, got.Components, 1)
	assert.Equal(t, domain.SeverityWarning, got.Components[0].Severity)
}

func TestHealthCheckUnhealthyResponds503(t *testing.T) {
	svc := &stubHealthService{snapshot: domain.SystemHealth{Status: domain.StatusUnhealthy}}
	h := NewHealthHandler(svc, slog.Default())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsGroupsSamplesByKind(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubHealthService{
		samples: []domain.ComponentHealthSample{
			{ResourceID: "scan-fn", Kind: domain.ResourceCompute, Compute: &domain.ComputeMetrics{Invocations: 48}, SampledAt: now},
			{ResourceID: "cards", Kind: domain.ResourceStorage, Storage: &domain.StorageMetrics{ItemCount: 12}, SampledAt: now},
			{ResourceID: "api", Kind: domain.ResourceGateway, Gateway: &domain.GatewayMetrics{Requests: 100}, SampledAt: now},
		},
		diags: []domain.Diagnostic{{Source: "workflow", Reason: "timed out"}},
	}
	h := NewMetricsHandler(svc, slog.Default())

	rec := httptest.NewRecorder()
	h.Collect(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp metricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Compute, 1)
	assert.Len(t, resp.Storage, 1)
	assert.Len(t, resp.Gateway, 1)
	assert.Empty(t, resp.Workflow)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, "workflow", resp.Diagnostics[0].Source)
	assert.NotEmpty(t, resp.LastUpdated)
}
