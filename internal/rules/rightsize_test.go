package rules

import (
	"math"
	"testing"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

func TestRightsizeRule_Evaluate(t *testing.T) {
	base := func() *models.ResourceEntity {
		return &models.ResourceEntity{
			ResourceID:          "i-1",
			State:               models.ResourceActive,
			ProvisionedCapacity: 16,
			MonthlyCostUSD:      400,
			Samples:             samples(20, 20), // peak 20% of 16 units
		}
	}

	t.Run("overprovisioned resource gets a rightsize draft", func(t *testing.T) {
		got := (RightsizeRule{}).Evaluate(idleCtx(base()))
		if len(got) != 1 {
			t.Fatalf("expected 1 draft, got %d", len(got))
		}
		d := got[0]
		if d.ActionType != models.ActionRightsize {
			t.Errorf("action = %s; want rightsize", d.ActionType)
		}
		// target = ceil(16 × 0.20 × 1.3) = 5 units; savings = 400 × 11/16.
		if d.ActionParams["target_capacity"] != "5" {
			t.Errorf("target_capacity = %q; want 5", d.ActionParams["target_capacity"])
		}
		if math.Abs(d.EstimatedMonthlySavings-275) > 0.01 {
			t.Errorf("savings = %v; want 275", d.EstimatedMonthlySavings)
		}
	})

	t.Run("peak above threshold is left alone", func(t *testing.T) {
		res := base()
		res.Samples = samples(20, 70)
		if got := (RightsizeRule{}).Evaluate(idleCtx(res)); len(got) != 0 {
			t.Errorf("expected 0 drafts at 70%% peak, got %d", len(got))
		}
	})

	t.Run("zero peak means no utilization data", func(t *testing.T) {
		res := base()
		res.Samples = samples(20, 0)
		if got := (RightsizeRule{}).Evaluate(idleCtx(res)); len(got) != 0 {
			t.Errorf("expected 0 drafts without utilization data, got %d", len(got))
		}
	})

	t.Run("non-active resources are skipped", func(t *testing.T) {
		res := base()
		res.State = models.ResourceStopped
		if got := (RightsizeRule{}).Evaluate(idleCtx(res)); len(got) != 0 {
			t.Errorf("expected 0 drafts for stopped resource, got %d", len(got))
		}
	})

	t.Run("single-unit resources cannot shrink", func(t *testing.T) {
		res := base()
		res.ProvisionedCapacity = 1
		if got := (RightsizeRule{}).Evaluate(idleCtx(res)); len(got) != 0 {
			t.Errorf("expected 0 drafts for 1-unit resource, got %d", len(got))
		}
	})

	t.Run("negligible savings are dropped", func(t *testing.T) {
		res := base()
		res.MonthlyCostUSD = 1.2 // savings would be ~$0.83
		if got := (RightsizeRule{}).Evaluate(idleCtx(res)); len(got) != 0 {
			t.Errorf("expected 0 drafts for negligible savings, got %d", len(got))
		}
	})
}
