package analytics

import (
	"sort"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// DefaultTopContributors is how many services the breakdown calls out.
const DefaultTopContributors = 5

// BuildBreakdown aggregates spend by service and ranks the top contributors
// by share of total cost. topN <= 0 selects DefaultTopContributors.
func BuildBreakdown(records []models.CostRecord, topN int) *models.CostBreakdown {
	if topN <= 0 {
		topN = DefaultTopContributors
	}

	byService := make(map[string]float64)
	var total float64
	for _, rec := range records {
		service := rec.Service
		if service == "" {
			service = "unattributed"
		}
		byService[service] += rec.AmountUSD
		total += rec.AmountUSD
	}

	contributors := make([]models.ServiceCost, 0, len(byService))
	for service, cost := range byService {
		sc := models.ServiceCost{Service: service, CostUSD: round2(cost)}
		if total > 0 {
			sc.Percent = round2(cost / total * 100)
		}
		contributors = append(contributors, sc)
	}
	sort.Slice(contributors, func(i, j int) bool {
		if contributors[i].CostUSD != contributors[j].CostUSD {
			return contributors[i].CostUSD > contributors[j].CostUSD
		}
		return contributors[i].Service < contributors[j].Service
	})
	if len(contributors) > topN {
		contributors = contributors[:topN]
	}

	return &models.CostBreakdown{
		ByService:       byService,
		TopContributors: contributors,
		TotalCostUSD:    round2(total),
	}
}
