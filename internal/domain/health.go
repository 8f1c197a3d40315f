package domain

import "time"

// ResourceKind classifies a monitored infrastructure component.
type ResourceKind string

const (
	ResourceCompute  ResourceKind = "compute"
	ResourceStorage  ResourceKind = "storage"
	ResourceGateway  ResourceKind = "gateway"
	ResourceWorkflow ResourceKind = "workflow"
)

// ResourceKinds lists every kind in a stable order.
var ResourceKinds = []ResourceKind{
	ResourceCompute,
	ResourceStorage,
	ResourceGateway,
	ResourceWorkflow,
}

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceCompute, ResourceStorage, ResourceGateway, ResourceWorkflow:
		return true
	}
	return false
}

// Resource identifies one monitored component that the aggregator expects a
// sample for on every aggregation pass.
type Resource struct {
	ID   string       `json:"id"`
	Kind ResourceKind `json:"kind"`
}

// ComputeMetrics are the raw counters of a function runtime over the sampling
// window.
type ComputeMetrics struct {
	Invocations   int64   `json:"invocations"`
	Errors        int64   `json:"errors"`
	Throttles     int64   `json:"throttles"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// StorageMetrics are the raw counters of a table store over the sampling
// window. Provisioned units of zero mean on-demand capacity; utilization
// ratios are then undefined and treated as zero.
type StorageMetrics struct {
	ConsumedReadUnits     float64 `json:"consumed_read_units"`
	ConsumedWriteUnits    float64 `json:"consumed_write_units"`
	ProvisionedReadUnits  float64 `json:"provisioned_read_units"`
	ProvisionedWriteUnits float64 `json:"provisioned_write_units"`
	ItemCount             int64   `json:"item_count"`
	SizeBytes             int64   `json:"size_bytes"`
}

// GatewayMetrics are the raw counters of an API gateway over the sampling
// window.
type GatewayMetrics struct {
	Requests     int64   `json:"requests"`
	Errors4xx    int64   `json:"errors_4xx"`
	Errors5xx    int64   `json:"errors_5xx"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// WorkflowMetrics are the execution outcomes of a workflow engine over the
// sampling window.
type WorkflowMetrics struct {
	Executions int64 `json:"executions"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
	TimedOut   int64 `json:"timed_out"`
}

// ComponentHealthSample is one resource's raw operational counters at a point
// in time. Exactly one of the kind-specific metric sets is populated,
// matching Kind.
type ComponentHealthSample struct {
	ResourceID string           `json:"resource_id"`
	Kind       ResourceKind     `json:"kind"`
	Compute    *ComputeMetrics  `json:"compute,omitempty"`
	Storage    *StorageMetrics  `json:"storage,omitempty"`
	Gateway    *GatewayMetrics  `json:"gateway,omitempty"`
	Workflow   *WorkflowMetrics `json:"workflow,omitempty"`
	SampledAt  time.Time        `json:"sampled_at"`
}

// Validate reports the first defect that makes the sample unusable.
func (s ComponentHealthSample) Validate() *ValidationError {
	if s.ResourceID == "" {
		return &ValidationError{Field: "resource_id", Reason: "must not be empty"}
	}
	if !s.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "unknown resource kind " + string(s.Kind)}
	}
	var populated bool
	switch s.Kind {
	case ResourceCompute:
		populated = s.Compute != nil
	case ResourceStorage:
		populated = s.Storage != nil
	case ResourceGateway:
		populated = s.Gateway != nil
	case ResourceWorkflow:
		populated = s.Workflow != nil
	}
	if !populated {
		return &ValidationError{Field: "metrics", Reason: "metric set missing for kind " + string(s.Kind)}
	}
	return nil
}

// Severity is the classified state of one component.
type Severity string

const (
	SeverityHealthy Severity = "healthy"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityUnknown Severity = "unknown"
)

// Status is the system-wide health verdict.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth pairs a sample with its classified severity. Sample is nil
// for components whose collector produced nothing this pass.
type ComponentHealth struct {
	ResourceID string                 `json:"resource_id"`
	Kind       ResourceKind           `json:"kind"`
	Severity   Severity               `json:"severity"`
	Detail     string                 `json:"detail,omitempty"`
	Sample     *ComponentHealthSample `json:"sample,omitempty"`
}

// SystemHealth is a fresh, immutable aggregation snapshot. Every aggregation
// call produces a new value; snapshots are never mutated in place.
type SystemHealth struct {
	Status     Status            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Components []ComponentHealth `json:"components"`
}
