package models

import "time"

// EntityType names the kind of entity an audit entry refers to.
type EntityType string

const (
	EntityRecommendation EntityType = "recommendation"
	EntityResource       EntityType = "resource"
	EntityForecast       EntityType = "forecast"
)

// AuditEntry is one append-only record of a state transition or executed
// action. SequenceNo is strictly increasing and gapless within a partition.
//
// Entries are written ahead of the transition's side effects: the entry for
// entering Executing is durable before the provider call is made, and the
// Completed/Failed entry is written after the call returns.
type AuditEntry struct {
	SequenceNo uint64 `json:"sequence_no"`
	// Partition scopes the sequence. Recommendation transitions partition
	// by resource ID so per-resource histories read as contiguous runs.
	Partition  string     `json:"partition"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	FromState  string     `json:"from_state"`
	ToState    string     `json:"to_state"`
	Actor      string     `json:"actor"`
	Timestamp  time.Time  `json:"timestamp"`
	// Detail carries a short human-readable note (e.g. the provider error
	// that caused a Failed transition). Optional.
	Detail string `json:"detail,omitempty"`
}
