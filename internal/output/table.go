package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiYellow  = "\033[0;33m"
)

// TableOptions controls table rendering.
type TableOptions struct {
	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// MaxRows truncates long tables; 0 renders everything.
	MaxRows int
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	s := string(sev)
	if !colored {
		return s
	}
	switch sev {
	case models.SeverityCritical:
		return ansiBoldRed + s + ansiReset
	case models.SeverityWarning:
		return ansiYellow + s + ansiReset
	default:
		return s
	}
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// severityCell returns the severity padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	if !colored {
		return fmt.Sprintf("%-*s", width, text)
	}
	var code string
	switch sev {
	case models.SeverityCritical:
		code = ansiBoldRed
	case models.SeverityWarning:
		code = ansiYellow
	default:
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max bytes for ID/label columns.
// A single-char ellipsis replaces the last byte when truncation occurs.
func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// RenderRecommendations writes a formatted recommendation table to w.
//
// Column order:
//
//	ID  RESOURCE  RULE  ACTION  STATUS  CONF  SAVINGS/MO  EXPLANATION
func RenderRecommendations(w io.Writer, recs []models.Recommendation, opts TableOptions) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return
	}

	const (
		wID       = 36
		wResource = 24
		wRule     = 18
		wAction   = 10
		wStatus   = 16
		wConf     = 5
		wSavings  = 11
		wMessage  = 45
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s  %-*s  %-*s  %s",
		wID, "ID",
		wResource, "RESOURCE",
		wRule, "RULE",
		wAction, "ACTION",
		wStatus, "STATUS",
		wConf, "CONF",
		wSavings, "SAVINGS/MO",
		"EXPLANATION")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for i, rec := range recs {
		if opts.MaxRows > 0 && i >= opts.MaxRows {
			fmt.Fprintf(w, "... and %d more\n", len(recs)-i)
			return
		}
		fmt.Fprintf(w, "%-*s  %-*s  %-*s  %-*s  %-*s  %-*.2f  $%-*.2f  %s\n",
			wID, truncateField(rec.ID, wID),
			wResource, truncateField(rec.ResourceID, wResource),
			wRule, truncateField(rec.RuleID, wRule),
			wAction, truncateField(string(rec.ActionType), wAction),
			wStatus, string(rec.Status),
			wConf, rec.Confidence,
			wSavings-1, rec.EstimatedMonthlySavings,
			ShortenMessage(rec.Explanation, wMessage))
	}
}

// RenderAnomalies writes a formatted anomaly table to w.
func RenderAnomalies(w io.Writer, events []models.AnomalyEvent, opts TableOptions) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No anomalies.")
		return
	}

	const (
		wDim      = 40
		wSeverity = 10
		wObserved = 12
		wBaseline = 12
		wScore    = 8
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s  %s",
		wDim, "DIMENSION",
		wSeverity, "SEVERITY",
		wObserved, "OBSERVED",
		wBaseline, "BASELINE",
		wScore, "SCORE",
		"DETECTED")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, ev := range events {
		fmt.Fprintf(w, "%-*s  %s  $%-*.2f  $%-*.2f  %-*.1f  %s\n",
			wDim, truncateField(ev.Dimension.String(), wDim),
			severityCell(ev.Severity, wSeverity, opts.Colored),
			wObserved-1, ev.Observed,
			wBaseline-1, ev.BaselineMean,
			wScore, ev.DeviationScore,
			ev.DetectedAt.Format("2006-01-02 15:04"))
	}
}

// RenderAuditTrail writes a formatted audit trail to w, oldest first.
func RenderAuditTrail(w io.Writer, entries []models.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No audit entries.")
		return
	}

	const (
		wSeq    = 5
		wEntity = 36
		wFrom   = 16
		wTo     = 16
		wActor  = 20
		wTime   = 19
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s  %-*s  %s",
		wSeq, "SEQ",
		wEntity, "ENTITY",
		wFrom, "FROM",
		wTo, "TO",
		wActor, "ACTOR",
		wTime, "TIMESTAMP",
		"DETAIL")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, e := range entries {
		fmt.Fprintf(w, "%-*d  %-*s  %-*s  %-*s  %-*s  %-*s  %s\n",
			wSeq, e.SequenceNo,
			wEntity, truncateField(e.EntityID, wEntity),
			wFrom, e.FromState,
			wTo, e.ToState,
			wActor, truncateField(e.Actor, wActor),
			wTime, e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Detail)
	}
}

// RenderReport writes the full decision report: summary, trend, breakdown,
// anomalies, and recommendations.
func RenderReport(w io.Writer, report *models.DecisionReport, opts TableOptions) {
	fmt.Fprintf(w, "Decision report %s\n", report.ReportID)
	fmt.Fprintf(w, "Account %s, %s to %s\n\n",
		report.AccountID,
		report.PeriodStart.Format("2006-01-02"),
		report.PeriodEnd.Format("2006-01-02"))

	s := report.Summary
	fmt.Fprintf(w, "Records analysed:   %d (%d skipped)\n", s.RecordCount, s.SkippedRecords)
	fmt.Fprintf(w, "Total cost:         $%.2f\n", s.TotalCostUSD)
	fmt.Fprintf(w, "Anomalies:          %d (%d critical)\n", s.AnomalyCount, s.CriticalAnomalies)
	fmt.Fprintf(w, "Forecasts:          %d dimensions\n", s.ForecastedDimensions)
	fmt.Fprintf(w, "Recommendations:    %d, est. $%.2f/month\n", s.RecommendationCount, s.TotalEstimatedMonthlySavings)

	if report.Trend != nil {
		fmt.Fprintf(w, "Trend:              %s (%.1f%% over %d days)\n",
			report.Trend.Direction, report.Trend.ChangePercent, report.Trend.DataPoints)
		for _, insight := range report.Trend.Insights {
			fmt.Fprintf(w, "  - %s\n", insight)
		}
	}

	if report.Breakdown != nil && len(report.Breakdown.TopContributors) > 0 {
		fmt.Fprintln(w, "\nTop services:")
		for _, svc := range report.Breakdown.TopContributors {
			fmt.Fprintf(w, "  %-45s  $%10.2f  (%.1f%%)\n", truncateField(svc.Service, 45), svc.CostUSD, svc.Percent)
		}
	}

	if len(report.Anomalies) > 0 {
		fmt.Fprintln(w, "\nAnomalies:")
		RenderAnomalies(w, report.Anomalies, opts)
	}

	fmt.Fprintln(w, "\nRecommendations:")
	RenderRecommendations(w, report.Recommendations, opts)
}
