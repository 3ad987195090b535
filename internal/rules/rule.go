package rules

import (
	"time"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
)

// RuleContext carries all signals for a single evaluation run.
// It is the sole input to Rule.Evaluate and must contain everything a rule
// needs; rules are read-only against it and must never make network calls
// or mutate shared state, which is what makes parallel evaluation safe.
type RuleContext struct {
	// AccountID is the account being evaluated.
	AccountID string

	// Resources holds the tracked resource entities for the account.
	Resources []*models.ResourceEntity

	// CostByResource maps resource ID to its recent monthly cost
	// aggregate in the reporting currency. A missing entry means cost
	// attribution was unavailable; rules must skip savings estimates that
	// depend on it.
	CostByResource map[string]float64

	// Anomalies are the events detected in the current window.
	Anomalies []models.AnomalyEvent

	// Forecasts maps a dimension key (Dimension.String()) to its current
	// forecast series. May be empty when the forecaster was skipped.
	Forecasts map[string]*models.ForecastSeries

	// Policy holds the active PolicyConfig for threshold overrides. May be
	// nil when no policy file is loaded; rules must treat nil as "use
	// defaults".
	Policy *policy.PolicyConfig

	// Now is the evaluation timestamp, injected for determinism.
	Now time.Time
}

// AnomaliesForResource returns the anomaly events whose dimension is the
// given resource.
func (c RuleContext) AnomaliesForResource(resourceID string) []models.AnomalyEvent {
	var out []models.AnomalyEvent
	for _, ev := range c.Anomalies {
		if ev.Dimension.Kind == models.DimensionResource && ev.Dimension.Key == resourceID {
			out = append(out, ev)
		}
	}
	return out
}

// Rule is a single deterministic optimization rule.
// Rules must be stateless and safe to call concurrently.
// They must never call the cloud SDK or any external service.
type Rule interface {
	// ID returns the unique, stable identifier for this rule
	// (e.g. "IDLE_RESOURCE").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Evaluate inspects the provided context and returns zero or more
	// recommendation drafts in state Proposed. An empty slice means no
	// opportunity was detected.
	Evaluate(ctx RuleContext) []models.Recommendation
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every enabled registered rule against ctx, merges
	// results in registration order, and resolves per-resource ties.
	EvaluateAll(ctx RuleContext) []models.Recommendation
}
