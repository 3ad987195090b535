package rules

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/confidence"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
)

const (
	rightsizeRuleID = "RIGHTSIZE"

	// rightsizePeakPercent: a resource whose peak observed utilization
	// stays under this share of provisioned capacity is overprovisioned.
	rightsizePeakPercent = 40.0

	// rightsizeHeadroomFactor is the safety multiplier applied on top of
	// peak usage when computing the target capacity.
	rightsizeHeadroomFactor = 1.3

	// rightsizeMinSamples is the minimum utilization history required
	// before trusting the observed peak.
	rightsizeMinSamples = 10

	// rightsizeMinSavingsUSD drops drafts whose savings would not justify
	// the change churn.
	rightsizeMinSavingsUSD = 1.0
)

// RightsizeRule flags resources whose provisioned capacity far exceeds peak
// observed usage and proposes shrinking them to peak-plus-headroom.
type RightsizeRule struct{}

func (r RightsizeRule) ID() string   { return rightsizeRuleID }
func (r RightsizeRule) Name() string { return "Overprovisioned Resource" }

func (r RightsizeRule) Evaluate(ctx RuleContext) []models.Recommendation {
	peakThreshold := policy.GetThreshold(rightsizeRuleID, "peak_utilization_percent", rightsizePeakPercent, ctx.Policy)
	headroom := policy.GetThreshold(rightsizeRuleID, "headroom_factor", rightsizeHeadroomFactor, ctx.Policy)
	minSamples := int(policy.GetThreshold(rightsizeRuleID, "min_samples", rightsizeMinSamples, ctx.Policy))

	var drafts []models.Recommendation
	for _, res := range ctx.Resources {
		if res.State != models.ResourceActive {
			continue
		}
		if res.ProvisionedCapacity <= 1 || len(res.Samples) < minSamples {
			continue
		}

		peak := res.PeakUtilization()
		// 0 means no utilization data reached us, not a truly silent
		// resource; that case belongs to the idle rule once samples exist.
		if peak <= 0 || peak >= peakThreshold {
			continue
		}

		target := math.Ceil(res.ProvisionedCapacity * peak / 100.0 * headroom)
		if target < 1 {
			target = 1
		}
		if target >= res.ProvisionedCapacity {
			continue
		}

		monthlyCost := res.MonthlyCostUSD
		if monthlyCost <= 0 {
			monthlyCost = ctx.CostByResource[res.ResourceID]
		}
		if monthlyCost <= 0 {
			continue
		}

		savings := monthlyCost * (1 - target/res.ProvisionedCapacity)
		if savings < rightsizeMinSavingsUSD {
			continue
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
			ID:         uuid.New().String(),
			RuleID:     rightsizeRuleID,
			ResourceID: res.ResourceID,
			ActionType: models.ActionRightsize,
			ActionParams: map[string]string{
				"target_capacity": strconv.FormatFloat(target, 'f', -1, 64),
			},
			EstimatedMonthlySavings: savings,
			Confidence:              confidence.Clamp(confidence.Decay(confidence.High, 1)),
			Evidence:                evidence,
			Explanation: fmt.Sprintf("Peak utilization %.1f%% of %.0f provisioned units; %.0f units cover peak with %.0f%% headroom.",
				peak, res.ProvisionedCapacity, target, (headroom-1)*100),
			Status:    models.StatusProposed,
			CreatedAt: ctx.Now,
			UpdatedAt: ctx.Now,
		})
	}
	return drafts
}
