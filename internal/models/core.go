package models

import "time"

// Provider identifies the cloud vendor a record or resource originates from.
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
	ProviderGCP   Provider = "gcp"
)

// CostRecord is the canonical, hour-granularity cost/usage record produced by
// the normalizer. It is immutable once ingested; corrections arrive as new
// records that win deduplication by composite key.
type CostRecord struct {
	Provider   Provider `json:"provider"`
	AccountID  string   `json:"account_id"`
	ResourceID string   `json:"resource_id"`
	Service    string   `json:"service"`
	Region     string   `json:"region"`
	// Timestamp is the start of the usage hour, always UTC and truncated
	// to hour granularity by the normalizer.
	Timestamp time.Time `json:"timestamp"`

	// AmountUSD is the cost in the reporting currency after conversion.
	AmountUSD     float64           `json:"amount_usd"`
	UsageQuantity float64           `json:"usage_quantity"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// RecordKey is the composite deduplication key for CostRecords.
// Two records with equal keys describe the same billed hour; the later
// occurrence in a batch wins.
type RecordKey struct {
	Provider   Provider
	AccountID  string
	ResourceID string
	Service    string
	Timestamp  time.Time
}

// Key returns the composite deduplication key for r.
func (r CostRecord) Key() RecordKey {
	return RecordKey{
		Provider:   r.Provider,
		AccountID:  r.AccountID,
		ResourceID: r.ResourceID,
		Service:    r.Service,
		Timestamp:  r.Timestamp,
	}
}

// ResourceState is the lifecycle state of a tracked cloud resource.
// Resources are never deleted from the store, only state-transitioned.
type ResourceState string

const (
	ResourceActive  ResourceState = "active"
	ResourceIdle    ResourceState = "idle"
	ResourceStopped ResourceState = "stopped"
)

// UtilizationSample is a single utilization observation for a resource,
// expressed as a percentage of provisioned capacity.
type UtilizationSample struct {
	Timestamp time.Time `json:"timestamp"`
	Percent   float64   `json:"percent"`
}

// ResourceEntity is the tracked state of a single cloud resource.
// Mutated by ingestion (LastSeenAt, Samples) and by executed actions (State).
type ResourceEntity struct {
	ResourceID string   `json:"resource_id"`
	Provider   Provider `json:"provider"`
	// Type is the provider-native resource type (e.g. "ec2-instance",
	// "rds-instance", "load-balancer").
	Type   string        `json:"type"`
	Region string        `json:"region"`
	State  ResourceState `json:"current_state"`

	// ProvisionedCapacity is the provisioned size in abstract capacity
	// units (vCPUs for compute, GB for storage). Used by the rightsizing
	// rule to compare against peak observed usage.
	ProvisionedCapacity float64 `json:"provisioned_capacity"`

	// MonthlyCostUSD is the most recent observed monthly run rate for this
	// resource. 0 means cost attribution was unavailable, not free.
	MonthlyCostUSD float64 `json:"monthly_cost_usd"`

	LastSeenAt time.Time           `json:"last_seen_at"`
	Samples    []UtilizationSample `json:"utilization_samples,omitempty"`
	Tags       map[string]string   `json:"tags,omitempty"`
}

// PeakUtilization returns the highest utilization percentage across the
// entity's samples, or 0 when no samples exist.
func (e *ResourceEntity) PeakUtilization() float64 {
	var peak float64
	for _, s := range e.Samples {
		if s.Percent > peak {
			peak = s.Percent
		}
	}
	return peak
}

// DimensionKind is an aggregation axis for cost/usage data.
type DimensionKind string

const (
	DimensionAccount  DimensionKind = "account"
	DimensionService  DimensionKind = "service"
	DimensionResource DimensionKind = "resource"
)

// Dimension identifies one aggregation series: a kind plus the concrete key
// on that axis (an account ID, a service name, or a resource ID).
type Dimension struct {
	Kind DimensionKind `json:"kind"`
	Key  string        `json:"key"`
}

// String returns the canonical "kind:key" form used for map keys and audit
// partitions.
func (d Dimension) String() string {
	return string(d.Kind) + ":" + d.Key
}
