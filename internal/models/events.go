package models

import "time"

// Severity represents the impact level of an anomaly.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// AnomalyEvent is a single detected cost deviation. It is immutable and
// terminal once emitted; a sustained anomaly emits only its onset event.
type AnomalyEvent struct {
	ID        string    `json:"id"`
	Dimension Dimension `json:"dimension"`
	// Metric names the observed series (e.g. "cost_usd", "usage_quantity").
	Metric string `json:"metric"`

	BaselineMean   float64 `json:"baseline_mean"`
	BaselineStddev float64 `json:"baseline_stddev"`
	Observed       float64 `json:"observed_value"`
	// DeviationScore is (observed - mean) / stddev with stddev floored to a
	// small epsilon on near-constant series.
	DeviationScore float64 `json:"deviation_score"`

	Severity   Severity  `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

// ForecastPoint is a single projected period with symmetric confidence bounds.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Estimate float64   `json:"predicted_cost"`
	Lower    float64   `json:"lower_bound"`
	Upper    float64   `json:"upper_bound"`
}

// IntervalWidth returns Upper - Lower for the point.
func (p ForecastPoint) IntervalWidth() float64 {
	return p.Upper - p.Lower
}

// ForecastSeries is one complete projection for a dimension. A forecast run
// replaces the prior series for its dimension in full; superseded series are
// retained by the store for backtesting, never mutated.
type ForecastSeries struct {
	Dimension    Dimension       `json:"dimension"`
	HorizonDays  int             `json:"horizon_days"`
	Points       []ForecastPoint `json:"points"`
	GeneratedAt  time.Time       `json:"generated_at"`
	ModelVersion string          `json:"model_version"`
}
