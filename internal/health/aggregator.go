// Package health reduces heterogeneous per-component operational samples to a
// single system health verdict. The reduction is strict worst-case: no
// averaging can mask a failing component, and a component that produced no
// sample surfaces as unknown rather than silently healthy.
package health

import (
	"fmt"
	"time"

	"cardarb/internal/domain"
)

// Thresholds holds the severity cutoffs per resource kind. All rate fields
// are fractions in (0,1]; a zero value means the threshold was not configured
// and Validate rejects the whole set, because severity policy must be
// explicit.
type Thresholds struct {
	// Compute: a sample warns when its success rate drops below WarnSuccessRate
	// or its average duration exceeds DurationCeilingMs; it errors when the
	// success rate drops below ErrorSuccessRate or any invocation throttled.
	ComputeWarnSuccessRate   float64
	ComputeErrorSuccessRate  float64
	ComputeDurationCeilingMs float64

	// Storage: utilization = consumed/provisioned capacity units per window.
	// On-demand tables (provisioned == 0) have undefined utilization and stay
	// healthy on this rule.
	StorageWarnUtilization  float64
	StorageErrorUtilization float64

	// Gateway: server error rate = 5xx/requests, client error rate =
	// 4xx/requests. Client errors alone never escalate past warning.
	GatewayWarn5xxRate  float64
	GatewayError5xxRate float64
	GatewayWarn4xxRate  float64

	// Workflow: failure rate = (failed + timed out)/executions. Any timed-out
	// execution warns even below the failure-rate cutoff.
	WorkflowWarnFailureRate  float64
	WorkflowErrorFailureRate float64
}

// Validate rejects incomplete or inconsistent threshold policy.
func (t Thresholds) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"compute_warn_success_rate", t.ComputeWarnSuccessRate},
		{"compute_error_success_rate", t.ComputeErrorSuccessRate},
		{"compute_duration_ceiling_ms", t.ComputeDurationCeilingMs},
		{"storage_warn_utilization", t.StorageWarnUtilization},
		{"storage_error_utilization", t.StorageErrorUtilization},
		{"gateway_warn_5xx_rate", t.GatewayWarn5xxRate},
		{"gateway_error_5xx_rate", t.GatewayError5xxRate},
		{"gateway_warn_4xx_rate", t.GatewayWarn4xxRate},
		{"workflow_warn_failure_rate", t.WorkflowWarnFailureRate},
		{"workflow_error_failure_rate", t.WorkflowErrorFailureRate},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return &domain.ConfigurationError{Section: "health", Reason: c.name + " must be configured and positive"}
		}
	}
	if t.ComputeErrorSuccessRate > t.ComputeWarnSuccessRate {
		return &domain.ConfigurationError{Section: "health", Reason: "compute error success rate must not exceed the warn rate"}
	}
	if t.StorageWarnUtilization > t.StorageErrorUtilization {
		return &domain.ConfigurationError{Section: "health", Reason: "storage warn utilization must not exceed the error utilization"}
	}
	if t.GatewayWarn5xxRate > t.GatewayError5xxRate {
		return &domain.ConfigurationError{Section: "health", Reason: "gateway warn 5xx rate must not exceed the error rate"}
	}
	if t.WorkflowWarnFailureRate > t.WorkflowErrorFailureRate {
		return &domain.ConfigurationError{Section: "health", Reason: "workflow warn failure rate must not exceed the error rate"}
	}
	return nil
}

// AggregatorConfig configures the aggregator.
type AggregatorConfig struct {
	Thresholds Thresholds
	// Expected lists the resources a complete aggregation pass must cover.
	// An expected resource with no sample degrades the snapshot.
	Expected []domain.Resource
	Version  string
}

// Aggregator reduces component samples into SystemHealth snapshots. Aggregate
// is pure and safe for concurrent use.
type Aggregator struct {
	thresholds Thresholds
	expected   []domain.Resource
	version    string
}

// NewAggregator validates the threshold policy and returns an Aggregator.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		thresholds: cfg.Thresholds,
		expected:   append([]domain.Resource(nil), cfg.Expected...),
		version:    cfg.Version,
	}, nil
}

// Aggregate classifies every sample and reduces the severities to one status.
// The returned snapshot is freshly built on every call and never mutated.
//
// Reduction order: any error sample makes the system unhealthy; otherwise any
// warning or unknown sample makes it degraded; otherwise it is healthy. A
// missing expected resource contributes an unknown component, so a collector
// outage can degrade the verdict but never improve it.
func (a *Aggregator) Aggregate(samples []domain.ComponentHealthSample, now time.Time) domain.SystemHealth {
	components := make([]domain.ComponentHealth, 0, len(samples)+len(a.expected))
	seen := make(map[domain.Resource]bool, len(samples))

	for i := range samples {
		sample := samples[i]
		severity, detail := a.Classify(sample)
		seen[domain.Resource{ID: sample.ResourceID, Kind: sample.Kind}] = true
		components = append(components, domain.ComponentHealth{
			ResourceID: sample.ResourceID,
			Kind:       sample.Kind,
			Severity:   severity,
			Detail:     detail,
			Sample:     &sample,
		})
	}

	for _, res := range a.expected {
		if seen[res] {
			continue
		}
		components = append(components, domain.ComponentHealth{
			ResourceID: res.ID,
			Kind:       res.Kind,
			Severity:   domain.SeverityUnknown,
			Detail:     "no sample collected",
		})
	}

	return domain.SystemHealth{
		Status:     reduce(components),
		Timestamp:  now,
		Version:    a.version,
		Components: components,
	}
}

// Classify maps one sample to a severity with a human-readable explanation.
func (a *Aggregator) Classify(s domain.ComponentHealthSample) (domain.Severity, string) {
	if verr := s.Validate(); verr != nil {
		return domain.SeverityUnknown, verr.Error()
	}
	switch s.Kind {
	case domain.ResourceCompute:
		return a.classifyCompute(*s.Compute)
	case domain.ResourceStorage:
		return a.classifyStorage(*s.Storage)
	case domain.ResourceGateway:
		return a.classifyGateway(*s.Gateway)
	case domain.ResourceWorkflow:
		return a.classifyWorkflow(*s.Workflow)
	}
	return domain.SeverityUnknown, "unclassifiable sample"
}

func (a *Aggregator) classifyCompute(m domain.ComputeMetrics) (domain.Severity, string) {
	// No invocations means no evidence of failure: treat as fully successful.
	successRate := 1.0
	if m.Invocations > 0 {
		successRate = float64(m.Invocations-m.Errors) / float64(m.Invocations)
	}

	switch {
	case m.Throttles > 0:
		return domain.SeverityError, fmt.Sprintf("%d throttled invocations", m.Throttles)
	case successRate < a.thresholds.ComputeErrorSuccessRate:
		return domain.SeverityError, fmt.Sprintf("success rate %.1f%% below error threshold", successRate*100)
	case successRate < a.thresholds.ComputeWarnSuccessRate:
		return domain.SeverityWarning, fmt.Sprintf("success rate %.1f%% below warning threshold", successRate*100)
	case m.AvgDurationMs > a.thresholds.ComputeDurationCeilingMs:
		return domain.SeverityWarning, fmt.Sprintf("average duration %.1fms exceeds %.0fms ceiling", m.AvgDurationMs, a.thresholds.ComputeDurationCeilingMs)
	}
	return domain.SeverityHealthy, ""
}

func (a *Aggregator) classifyStorage(m domain.StorageMetrics) (domain.Severity, string) {
	util := storageUtilization(m)
	switch {
	case util >= a.thresholds.StorageErrorUtilization:
		return domain.SeverityError, fmt.Sprintf("capacity utilization %.0f%% at error level", util*100)
	case util >= a.thresholds.StorageWarnUtilization:
		return domain.SeverityWarning, fmt.Sprintf("capacity utilization %.0f%% at warning level", util*100)
	}
	return domain.SeverityHealthy, ""
}

// storageUtilization returns the worse of read and write utilization.
// Provisioned capacity of zero (on-demand) yields zero.
func storageUtilization(m domain.StorageMetrics) float64 {
	var read, write float64
	if m.ProvisionedReadUnits > 0 {
		read = m.ConsumedReadUnits / m.ProvisionedReadUnits
	}
	if m.ProvisionedWriteUnits > 0 {
		write = m.ConsumedWriteUnits / m.ProvisionedWriteUnits
	}
	if write > read {
		return write
	}
	return read
}

func (a *Aggregator) classifyGateway(m domain.GatewayMetrics) (domain.Severity, string) {
	if m.Requests == 0 {
		return domain.SeverityHealthy, ""
	}
	rate5xx := float64(m.Errors5xx) / float64(m.Requests)
	rate4xx := float64(m.Errors4xx) / float64(m.Requests)

	switch {
	case rate5xx >= a.thresholds.GatewayError5xxRate:
		return domain.SeverityError, fmt.Sprintf("5xx rate %.2f%% at error level", rate5xx*100)
	case rate5xx >= a.thresholds.GatewayWarn5xxRate:
		return domain.SeverityWarning, fmt.Sprintf("5xx rate %.2f%% at warning level", rate5xx*100)
	case rate4xx >= a.thresholds.GatewayWarn4xxRate:
		return domain.SeverityWarning, fmt.Sprintf("4xx rate %.2f%% at warning level", rate4xx*100)
	}
	return domain.SeverityHealthy, ""
}

func (a *Aggregator) classifyWorkflow(m domain.WorkflowMetrics) (domain.Severity, string) {
	if m.Executions == 0 {
		return domain.SeverityHealthy, ""
	}
	failureRate := float64(m.Failed+m.TimedOut) / float64(m.Executions)

	switch {
	case failureRate >= a.thresholds.WorkflowErrorFailureRate:
		return domain.SeverityError, fmt.Sprintf("failure rate %.1f%% at error level", failureRate*100)
	case failureRate >= a.thresholds.WorkflowWarnFailureRate:
		return domain.SeverityWarning, fmt.Sprintf("failure rate %.1f%% at warning level", failureRate*100)
	case m.TimedOut > 0:
		return domain.SeverityWarning, fmt.Sprintf("%d timed-out executions", m.TimedOut)
	}
	return domain.SeverityHealthy, ""
}

// reduce applies the worst-case rule over component severities.
func reduce(components []domain.ComponentHealth) domain.Status {
	status := domain.StatusHealthy
	for _, c := range components {
		switch c.Severity {
		case domain.SeverityError:
			return domain.StatusUnhealthy
		case domain.SeverityWarning, domain.SeverityUnknown:
			status = domain.StatusDegraded
		}
	}
	return status
}
