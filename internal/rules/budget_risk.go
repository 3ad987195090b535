package rules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/confidence"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/policy"
)

const (
	budgetRiskRuleID = "BUDGET_RISK"

	// budgetRiskHorizonDays is how many forecast days are summed into the
	// projected month when the series is longer.
	budgetRiskHorizonDays = 30
)

// BudgetRiskRule fires when a dimension's forecast upper bound projects past
// its configured monthly budget. The draft targets the dimension itself (its
// key doubles as the resource ID) and proposes scheduling — the only action
// meaningful at aggregate scope.
//
// Dimensions without a configured budget are never evaluated.
type BudgetRiskRule struct{}

func (r BudgetRiskRule) ID() string   { return budgetRiskRuleID }
func (r BudgetRiskRule) Name() string { return "Forecast Budget Risk" }

func (r BudgetRiskRule) Evaluate(ctx RuleContext) []models.Recommendation {
	horizon := int(policy.GetThreshold(budgetRiskRuleID, "horizon_days", budgetRiskHorizonDays, ctx.Policy))

	var drafts []models.Recommendation
	for key, series := range ctx.Forecasts {
		budget, ok := policy.Budget(key, ctx.Policy)
		if !ok {
			continue
		}

		projectedUpper := 0.0
		days := len(series.Points)
		if days > horizon {
			days = horizon
		}
		for _, p := range series.Points[:days] {
			projectedUpper += p.Upper
		}
		if projectedUpper <= budget {
			continue
		}

		drafts = append(drafts, models.Recommendation{
			ID:                      uuid.New().String(),
			RuleID:                  budgetRiskRuleID,
			ResourceID:              key,
			ActionType:              models.ActionSchedule,
			EstimatedMonthlySavings: projectedUpper - budget,
			Confidence:              confidence.Clamp(confidence.Low),
			Evidence: []models.EvidenceRef{
				{
					Kind:        models.EvidenceForecast,
					Dimension:   series.Dimension,
					GeneratedAt: series.GeneratedAt,
				},
			},
			Explanation: fmt.Sprintf("Projected %d-day upper bound $%.2f exceeds budget $%.2f for %s.",
				days, projectedUpper, budget, key),
			Status:    models.StatusProposed,
			CreatedAt: ctx.Now,
			UpdatedAt: ctx.Now,
		})
	}
	return drafts
}
