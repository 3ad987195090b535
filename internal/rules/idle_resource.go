package rules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/confidence"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
)

const (
	idleResourceRuleID = "IDLE_RESOURCE"

	// idleUtilizationPercent is the utilization below which a sample counts
	// as idle. 5% catches clearly idle machines while avoiding noisy false
	// positives on bursty workloads.
	idleUtilizationPercent = 5.0

	// idleSustainedSamples is how many consecutive trailing samples must be
	// idle before the rule fires.
	idleSustainedSamples = 10
)

// IdleResourceRule flags resources whose utilization has stayed below the
// threshold for a sustained trailing run and proposes stopping them.
//
// Resources without cost attribution (MonthlyCostUSD == 0) are skipped: a
// stop recommendation without a savings estimate cannot be ranked or
// auto-approved meaningfully.
type IdleResourceRule struct{}

func (r IdleResourceRule) ID() string   { return idleResourceRuleID }
func (r IdleResourceRule) Name() string { return "Idle Resource" }

// Evaluate returns one stop draft per active resource whose last N samples
// are all below the utilization threshold.
func (r IdleResourceRule) Evaluate(ctx RuleContext) []models.Recommendation {
	threshold := policy.GetThreshold(idleResourceRuleID, "utilization_percent", idleUtilizationPercent, ctx.Policy)
	sustained := int(policy.GetThreshold(idleResourceRuleID, "sustained_periods", idleSustainedSamples, ctx.Policy))

	var drafts []models.Recommendation
	for _, res := range ctx.Resources {
		if res.State == models.ResourceStopped {
			continue
		}
		if len(res.Samples) < sustained {
			continue
		}
		if !trailingBelow(res.Samples, sustained, threshold) {
			continue
		}

		monthlyCost := res.MonthlyCostUSD
		if monthlyCost <= 0 {
			monthlyCost = ctx.CostByResource[res.ResourceID]
		}
		// 0 means cost attribution was unavailable; skip rather than emit
		// an unrankable zero-savings draft.
		if monthlyCost <= 0 {
			continue
		}

		conf := confidence.Medium
		if len(res.Samples) >= 2*sustained {
			conf = confidence.High
		}

		var evidence []models.EvidenceRef
		for _, ev := range ctx.AnomaliesForResource(res.ResourceID) {
			evidence = append(evidence, models.EvidenceRef{
				Kind:        models.EvidenceAnomaly,
				ID:          ev.ID,
				Dimension:   ev.Dimension,
				GeneratedAt: ev.DetectedAt,
			})
		}

		drafts = append(drafts, models.Recommendation{
			ID:                      uuid.New().String(),
			RuleID:                  idleResourceRuleID,
			ResourceID:              res.ResourceID,
			ActionType:              models.ActionStop,
			EstimatedMonthlySavings: monthlyCost,
			Confidence:              confidence.Clamp(conf),
			Evidence:                evidence,
			Explanation: fmt.Sprintf("Utilization below %.1f%% for the last %d periods; stopping saves the full run rate.",
				threshold, sustained),
			Status:    models.StatusProposed,
			CreatedAt: ctx.Now,
			UpdatedAt: ctx.Now,
		})
	}
	return drafts
}

// trailingBelow reports whether the last n samples are all below threshold.
func trailingBelow(samples []models.UtilizationSample, n int, threshold float64) bool {
	for _, s := range samples[len(samples)-n:] {
		if s.Percent >= threshold {
			return false
		}
	}
	return true
}
