package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/normalizer"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
)

// DefaultCollector is the production Collector.
type DefaultCollector struct {
	factory common.ClientFactory
	logger  *zap.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewDefaultCollector returns a collector using real SDK clients.
func NewDefaultCollector(logger *zap.Logger) *DefaultCollector {
	return NewDefaultCollectorWithFactory(common.NewClientSet, logger)
}

// NewDefaultCollectorWithFactory returns a collector that builds per-region
// clients through f. Pass a mock factory in tests.
func NewDefaultCollectorWithFactory(f common.ClientFactory, logger *zap.Logger) *DefaultCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultCollector{factory: f, logger: logger, now: time.Now}
}

// CollectAll gathers the account's billing records once (Cost Explorer is
// global) and then walks each region for inventory. A failed region is
// logged and skipped.
func (c *DefaultCollector) CollectAll(
	ctx context.Context,
	profile *common.ProfileConfig,
	provider common.AWSClientProvider,
	regions []string,
	daysBack int,
) (*Dataset, error) {
	opts := CollectOptions{AccountID: profile.AccountID, DaysBack: daysBack}

	records, err := c.CollectBillingRecords(ctx, profile.Clients.CostExplorer, opts)
	if err != nil {
		// Billing data is the pipeline's primary input; without it there
		// is nothing to analyze.
		return nil, fmt.Errorf("collecting billing records for account %s: %w", profile.AccountID, err)
	}

	ds := &Dataset{RawRecords: records}
	for _, region := range regions {
		regionOpts := opts
		regionOpts.Region = region

		resources, err := c.CollectRegion(ctx, provider.ConfigForRegion(profile, region), regionOpts)
		if err != nil {
			c.logger.Warn("skipping region",
				zap.String("account_id", profile.AccountID),
				zap.String("region", region),
				zap.Error(err))
			continue
		}
		ds.Resources = append(ds.Resources, resources...)
	}

	c.logger.Info("collection finished",
		zap.String("account_id", profile.AccountID),
		zap.Int("raw_records", len(ds.RawRecords)),
		zap.Int("resources", len(ds.Resources)))
	return ds, nil
}

// CollectBillingRecords implements Collector.
func (c *DefaultCollector) CollectBillingRecords(ctx context.Context, client common.CostExplorerClient, opts CollectOptions) ([]normalizer.RawRecord, error) {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -effectiveDaysBack(opts.DaysBack))
	return collectBillingRecords(ctx, client, opts.AccountID,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// CollectRegion implements Collector.
func (c *DefaultCollector) CollectRegion(ctx context.Context, cfg aws.Config, opts CollectOptions) ([]*models.ResourceEntity, error) {
	clients := c.factory(cfg)
	now := c.now().UTC()

	ec2Resources, err := collectEC2Resources(ctx, clients.EC2, clients.CloudWatch, opts, now)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", opts.Region, err)
	}
	rdsResources, err := collectRDSResources(ctx, clients.RDS, opts, now)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", opts.Region, err)
	}
	lbResources, err := collectLoadBalancers(ctx, clients.ELBv2, opts, now)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", opts.Region, err)
	}

	out := make([]*models.ResourceEntity, 0, len(ec2Resources)+len(rdsResources)+len(lbResources))
	out = append(out, ec2Resources...)
	out = append(out, rdsResources...)
	out = append(out, lbResources...)
	return out, nil
}
