package models

import "time"

// ActionType identifies the optimization action a recommendation proposes.
type ActionType string

const (
	ActionStop      ActionType = "stop"
	ActionRightsize ActionType = "rightsize"
	ActionDelete    ActionType = "delete"
	ActionSchedule  ActionType = "schedule"

	// Inverse actions issued only during rollback, never recommended.
	ActionStart      ActionType = "start"
	ActionUnschedule ActionType = "unschedule"
)

// RiskRank orders action types by safety for tie-breaking between
// recommendations with equal estimated savings. Lower is safer: a stop can
// be undone, a delete cannot.
func (a ActionType) RiskRank() int {
	switch a {
	case ActionSchedule:
		return 0
	case ActionStop:
		return 1
	case ActionRightsize:
		return 2
	case ActionDelete:
		return 3
	default:
		return 4
	}
}

// RecommendationStatus is a state in the approval workflow state machine.
// Legal transitions are defined and enforced in the workflow package; status
// values here are only the vocabulary.
type RecommendationStatus string

const (
	StatusProposed        RecommendationStatus = "Proposed"
	StatusPendingApproval RecommendationStatus = "PendingApproval"
	StatusApproved        RecommendationStatus = "Approved"
	StatusRejected        RecommendationStatus = "Rejected"
	StatusExecuting       RecommendationStatus = "Executing"
	StatusCompleted       RecommendationStatus = "Completed"
	StatusFailed          RecommendationStatus = "Failed"
	StatusRolledBack      RecommendationStatus = "RolledBack"
)

// EvidenceKind distinguishes anomaly-backed from forecast-backed evidence.
type EvidenceKind string

const (
	EvidenceAnomaly  EvidenceKind = "anomaly"
	EvidenceForecast EvidenceKind = "forecast"
)

// EvidenceRef points a recommendation at the anomaly event or forecast series
// that supports it. GeneratedAt drives the staleness check during workflow
// validation.
type EvidenceRef struct {
	Kind EvidenceKind `json:"kind"`
	// ID is the AnomalyEvent ID for anomaly evidence; empty for forecasts.
	ID string `json:"id,omitempty"`
	// Dimension identifies the forecast series for forecast evidence.
	Dimension   Dimension `json:"dimension,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Recommendation is a single proposed optimization action against one
// resource. Its Status moves only along the workflow state machine; terminal
// recommendations are never reused — re-submission creates a new one.
type Recommendation struct {
	ID         string     `json:"id"`
	RuleID     string     `json:"rule_id"`
	ResourceID string     `json:"resource_id"`
	ActionType ActionType `json:"action_type"`

	// ActionParams carries action-specific parameters passed to the
	// provider automation interface (e.g. "target_instance_type").
	ActionParams map[string]string `json:"action_params,omitempty"`

	EstimatedMonthlySavings float64       `json:"estimated_monthly_savings_usd"`
	Confidence              float64       `json:"confidence"`
	Evidence                []EvidenceRef `json:"supporting_evidence,omitempty"`
	Explanation             string        `json:"explanation"`

	Status    RecommendationStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`

	// Attempts counts execution attempts against the provider. Bounded by
	// the configured retry limit; exhaustion leaves the recommendation Failed.
	Attempts int `json:"attempts"`
}

// Terminal reports whether the recommendation has reached a terminal state.
func (r *Recommendation) Terminal() bool {
	switch r.Status {
	case StatusRejected, StatusFailed, StatusRolledBack:
		return true
	}
	return false
}

// Decision is the outcome of an approval request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ApprovalDecision records who decided what about a recommendation, and why.
// Immutable once recorded. The auto-approve policy records itself as actor
// "auto-approve-policy".
type ApprovalDecision struct {
	RecommendationID string    `json:"recommendation_id"`
	Decision         Decision  `json:"decision"`
	Actor            string    `json:"actor"`
	Timestamp        time.Time `json:"timestamp"`
	Rationale        string    `json:"rationale"`
}
