package billing

import (
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
)

// serviceForResourceType maps inventory resource types onto the Cost
// Explorer service names their spend is billed under.
var serviceForResourceType = map[string]string{
	"ec2-instance":  "Amazon Elastic Compute Cloud - Compute",
	"rds-instance":  "Amazon Relational Database Service",
	"load-balancer": "Elastic Load Balancing",
}

// AttributeMonthlyCost apportions service-level spend from canonical billing
// records onto the inventory's resource entities, setting MonthlyCostUSD on
// each. Cost Explorer reports at service grain; within a service, resources
// take shares proportional to provisioned capacity, or equal shares when the
// service's inventory reports no capacity (load balancers). Resource types
// without a service mapping keep whatever run rate they already carry.
func AttributeMonthlyCost(resources []*models.ResourceEntity, records []models.CostRecord, daysBack int) {
	days := effectiveDaysBack(daysBack)

	spendByService := make(map[string]float64)
	for _, rec := range records {
		spendByService[rec.Service] += rec.AmountUSD
	}

	byService := make(map[string][]*models.ResourceEntity)
	for _, res := range resources {
		service, ok := serviceForResourceType[res.Type]
		if !ok {
			continue
		}
		byService[service] = append(byService[service], res)
	}

	for service, group := range byService {
		monthly := spendByService[service] / float64(days) * 30
		if monthly <= 0 {
			continue
		}

		var totalCapacity float64
		for _, res := range group {
			totalCapacity += res.ProvisionedCapacity
		}
		for _, res := range group {
			share := 1 / float64(len(group))
			if totalCapacity > 0 {
				share = res.ProvisionedCapacity / totalCapacity
			}
			res.MonthlyCostUSD = monthly * share
		}
	}
}
