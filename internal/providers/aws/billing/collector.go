// Package billing collects raw cost data and resource inventory from AWS.
// It feeds the normalizer and the rule engine; it applies no business rules
// of its own.
package billing

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/normalizer"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
)

// CollectOptions carries per-region collection parameters.
type CollectOptions struct {
	// Region is the AWS region to collect from.
	Region string

	// AccountID is the resolved AWS account ID.
	AccountID string

	// DaysBack is the lookback window for Cost Explorer and CloudWatch.
	// Defaults to 30 when zero.
	DaysBack int
}

// Dataset is the complete raw collection output for one account: billing
// line items still in provider-native shape, plus the resource inventory
// enriched with utilization samples.
type Dataset struct {
	RawRecords []normalizer.RawRecord
	Resources  []*models.ResourceEntity
}

// Collector gathers billing records and resource inventory from AWS.
// All implementations must use the AWS SDK v2 only.
type Collector interface {
	// CollectAll coordinates account-level Cost Explorer retrieval and
	// per-region inventory collection. Regions that fail are skipped so
	// a single unreachable region does not abort the run.
	CollectAll(
		ctx context.Context,
		profile *common.ProfileConfig,
		provider common.AWSClientProvider,
		regions []string,
		daysBack int,
	) (*Dataset, error)

	// CollectBillingRecords gathers daily per-service billing line items
	// from Cost Explorer for the last opts.DaysBack days. Records are
	// returned raw; canonicalization belongs to the normalizer.
	CollectBillingRecords(ctx context.Context, client common.CostExplorerClient, opts CollectOptions) ([]normalizer.RawRecord, error)

	// CollectRegion gathers the cost-relevant resources in one region:
	// EC2 instances, RDS instances and load balancers, with utilization
	// samples attached where CloudWatch has data.
	CollectRegion(ctx context.Context, cfg aws.Config, opts CollectOptions) ([]*models.ResourceEntity, error)
}

func effectiveDaysBack(daysBack int) int {
	if daysBack <= 0 {
		return 30
	}
	return daysBack
}
