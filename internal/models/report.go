package models

import "time"

// ServiceCost holds the aggregated reporting-currency cost for one service.
type ServiceCost struct {
	Service string  `json:"service"`
	CostUSD float64 `json:"cost_usd"`
	// Percent is this service's share of the report's total cost.
	Percent float64 `json:"percent"`
}

// CostTrend summarises the direction of spend across the analysed window.
type CostTrend struct {
	// Direction is "increasing", "decreasing", or "stable".
	Direction     string   `json:"trend"`
	ChangePercent float64  `json:"change_percentage"`
	DataPoints    int      `json:"data_points"`
	Insights      []string `json:"insights,omitempty"`
}

// CostBreakdown aggregates spend by service with the top contributors called
// out separately for rendering.
type CostBreakdown struct {
	ByService       map[string]float64 `json:"breakdown"`
	TopContributors []ServiceCost      `json:"top_contributors"`
	TotalCostUSD    float64            `json:"total_cost_usd"`
}

// DecisionSummary aggregates counts and totals across one pipeline run.
type DecisionSummary struct {
	RecordCount                  int     `json:"record_count"`
	SkippedRecords               int     `json:"skipped_records"`
	AnomalyCount                 int     `json:"anomaly_count"`
	CriticalAnomalies            int     `json:"critical_anomalies"`
	ForecastedDimensions         int     `json:"forecasted_dimensions"`
	RecommendationCount          int     `json:"recommendation_count"`
	TotalEstimatedMonthlySavings float64 `json:"total_estimated_monthly_savings_usd"`
	TotalCostUSD                 float64 `json:"total_cost_usd"`
}

// DecisionReport is the top-level output of a pipeline run: everything the
// dashboard and notification collaborators consume in one document.
type DecisionReport struct {
	ReportID    string    `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`
	AccountID   string    `json:"account_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	Summary         DecisionSummary  `json:"summary"`
	Anomalies       []AnomalyEvent   `json:"anomalies"`
	Forecasts       []ForecastSeries `json:"forecasts,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	Trend           *CostTrend       `json:"trend,omitempty"`
	Breakdown       *CostBreakdown   `json:"cost_breakdown,omitempty"`
}
