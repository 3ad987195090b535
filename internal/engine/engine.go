// Package engine orchestrates one decision cycle: ingest billing data,
// detect anomalies, forecast spend, evaluate optimization rules and hand the
// surviving recommendations to the approval workflow.
package engine

import (
	"context"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// RunOptions configures a single pipeline run.
// It is the sole input to Engine.Run.
type RunOptions struct {
	// Profile is the named AWS profile to analyse. Empty means the
	// default profile.
	Profile string

	// Regions is an explicit region list. When empty the engine discovers
	// and iterates all active regions.
	Regions []string

	// DaysBack is the lookback window in days for billing and metric
	// collection. Defaults to 30 when zero.
	DaysBack int

	// HorizonDays is the forecast horizon. Defaults to 30 when zero.
	HorizonDays int

	// Submit, when true, pushes every surviving recommendation into the
	// approval workflow (which may auto-approve under policy). When false
	// recommendations are persisted as Proposed only.
	Submit bool

	// ReportFormat controls how the CLI renders the returned report.
	ReportFormat ReportFormat
}

// Engine is the central orchestration interface. It coordinates collection,
// normalization, analytics, rule evaluation, and workflow submission,
// returning a fully populated DecisionReport.
//
// Engine must not call the cloud SDK directly; it delegates to the provider
// and workflow interfaces.
type Engine interface {
	Run(ctx context.Context, opts RunOptions) (*models.DecisionReport, error)
}
