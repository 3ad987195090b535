package policy

import "github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"

// defaultAutoApproveActions is the implicit low-risk action set used when
// auto_approve.actions is empty. Delete is deliberately absent: destructive
// actions always require an explicit human decision unless listed.
var defaultAutoApproveActions = []models.ActionType{
	models.ActionStop,
	models.ActionRightsize,
	models.ActionSchedule,
}

// ShouldAutoApprove reports whether rec qualifies for auto-approval under cfg.
//
// It returns false when:
//   - cfg is nil or auto-approve is disabled
//   - estimated monthly savings exceed the configured cap
//   - the action type is outside the allowed set
//
// Qualification never changes how the recommendation moves through the state
// machine; the workflow still records an Approved transition with the policy
// as actor.
func ShouldAutoApprove(rec *models.Recommendation, cfg *PolicyConfig) bool {
	if cfg == nil || !cfg.AutoApprove.Enabled {
		return false
	}
	if rec.EstimatedMonthlySavings > cfg.AutoApprove.SavingsCapUSD {
		return false
	}

	if len(cfg.AutoApprove.Actions) > 0 {
		for _, a := range cfg.AutoApprove.Actions {
			if models.ActionType(a) == rec.ActionType {
				return true
			}
		}
		return false
	}
	for _, a := range defaultAutoApproveActions {
		if a == rec.ActionType {
			return true
		}
	}
	return false
}
