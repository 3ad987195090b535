package rules

import (
	"sort"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// ResolveConflicts keeps at most one recommendation per resource and returns
// the survivors ranked by descending estimated savings.
//
// Ties for the same resource resolve by highest estimated monthly savings,
// then by lowest action risk (stop beats delete at equal savings). Two
// in-flight actions against one resource is the principal correctness
// hazard, so conflicting drafts never co-exist past this point.
func ResolveConflicts(drafts []models.Recommendation) []models.Recommendation {
	if len(drafts) == 0 {
		return nil
	}

	best := make(map[string]models.Recommendation, len(drafts))
	for _, d := range drafts {
		cur, ok := best[d.ResourceID]
		if !ok || preferred(d, cur) {
			best[d.ResourceID] = d
		}
	}

	out := make([]models.Recommendation, 0, len(best))
	for _, d := range best {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EstimatedMonthlySavings != out[j].EstimatedMonthlySavings {
			return out[i].EstimatedMonthlySavings > out[j].EstimatedMonthlySavings
		}
		if out[i].ActionType != out[j].ActionType {
			return out[i].ActionType.RiskRank() < out[j].ActionType.RiskRank()
		}
		return out[i].ResourceID < out[j].ResourceID
	})
	return out
}

// preferred reports whether a should replace b as the winning draft for a
// resource.
func preferred(a, b models.Recommendation) bool {
	if a.EstimatedMonthlySavings != b.EstimatedMonthlySavings {
		return a.EstimatedMonthlySavings > b.EstimatedMonthlySavings
	}
	return a.ActionType.RiskRank() < b.ActionType.RiskRank()
}
