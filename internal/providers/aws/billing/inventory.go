package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
)

// collectEC2Resources pages through running and stopped instances and
// converts each to a resource entity, enriching running instances with
// hourly CPU utilization samples from CloudWatch.
//
// CloudWatch failures are non-fatal: affected instances keep an empty sample
// set, which the rule engine treats as "no data", never as "idle".
func collectEC2Resources(
	ctx context.Context,
	ec2Client common.EC2Client,
	cwClient common.CloudWatchClient,
	opts CollectOptions,
	now time.Time,
) ([]*models.ResourceEntity, error) {
	input := &ec2svc.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"running", "stopped"},
			},
		},
	}

	var resources []*models.ResourceEntity
	var nextToken *string
	for {
		input.NextToken = nextToken
		page, err := ec2Client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("DescribeInstances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				resources = append(resources, toEC2Resource(inst, opts.Region, now))
			}
		}
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	end := now
	start := end.AddDate(0, 0, -effectiveDaysBack(opts.DaysBack))
	for _, res := range resources {
		if res.State != models.ResourceActive {
			continue
		}
		res.Samples = fetchCPUSamples(ctx, cwClient, res.ResourceID, start, end)
	}
	return resources, nil
}

func toEC2Resource(inst ec2types.Instance, region string, now time.Time) *models.ResourceEntity {
	state := models.ResourceActive
	if inst.State != nil && inst.State.Name == ec2types.InstanceStateNameStopped {
		state = models.ResourceStopped
	}

	// Provisioned capacity in vCPUs, when the instance reports CPU options.
	var capacity float64
	if inst.CpuOptions != nil && inst.CpuOptions.CoreCount != nil {
		threads := int32(1)
		if inst.CpuOptions.ThreadsPerCore != nil {
			threads = *inst.CpuOptions.ThreadsPerCore
		}
		capacity = float64(*inst.CpuOptions.CoreCount * threads)
	}

	return &models.ResourceEntity{
		ResourceID:          aws.ToString(inst.InstanceId),
		Provider:            models.ProviderAWS,
		Type:                "ec2-instance",
		Region:              region,
		State:               state,
		ProvisionedCapacity: capacity,
		LastSeenAt:          now,
		Tags:                tagsFromEC2(inst.Tags),
	}
}

// fetchCPUSamples retrieves hourly average CPUUtilization for instanceID
// over [start, end). Returns nil on failure or when no datapoints exist.
func fetchCPUSamples(
	ctx context.Context,
	cw common.CloudWatchClient,
	instanceID string,
	start, end time.Time,
) []models.UtilizationSample {
	out, err := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/EC2"),
		MetricName: aws.String("CPUUtilization"),
		Dimensions: []cwtypes.Dimension{
			{
				Name:  aws.String("InstanceId"),
				Value: aws.String(instanceID),
			},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(3600),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil || len(out.Datapoints) == 0 {
		return nil
	}

	samples := make([]models.UtilizationSample, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		if dp.Timestamp == nil || dp.Average == nil {
			continue
		}
		samples = append(samples, models.UtilizationSample{
			Timestamp: *dp.Timestamp,
			Percent:   *dp.Average,
		})
	}
	// CloudWatch returns datapoints unordered.
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples
}

func tagsFromEC2(tags []ec2types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Key != nil && t.Value != nil {
			m[*t.Key] = *t.Value
		}
	}
	return m
}

// collectRDSResources pages through DB instances and converts each to a
// resource entity. Capacity is the allocated storage in GB.
func collectRDSResources(
	ctx context.Context,
	client common.RDSClient,
	opts CollectOptions,
	now time.Time,
) ([]*models.ResourceEntity, error) {
	var resources []*models.ResourceEntity
	var marker *string
	for {
		page, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("DescribeDBInstances: %w", err)
		}
		for _, db := range page.DBInstances {
			state := models.ResourceActive
			if aws.ToString(db.DBInstanceStatus) == "stopped" {
				state = models.ResourceStopped
			}
			var capacity float64
			if db.AllocatedStorage != nil {
				capacity = float64(*db.AllocatedStorage)
			}
			resources = append(resources, &models.ResourceEntity{
				ResourceID:          aws.ToString(db.DBInstanceIdentifier),
				Provider:            models.ProviderAWS,
				Type:                "rds-instance",
				Region:              opts.Region,
				State:               state,
				ProvisionedCapacity: capacity,
				LastSeenAt:          now,
			})
		}
		if page.Marker == nil {
			break
		}
		marker = page.Marker
	}
	return resources, nil
}

// collectLoadBalancers pages through ELBv2 load balancers. Load balancers
// have no meaningful capacity; deletion candidates are identified by cost
// and traffic, not size.
func collectLoadBalancers(
	ctx context.Context,
	client common.ELBv2Client,
	opts CollectOptions,
	now time.Time,
) ([]*models.ResourceEntity, error) {
	var resources []*models.ResourceEntity
	var marker *string
	for {
		page, err := client.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("DescribeLoadBalancers: %w", err)
		}
		for _, lb := range page.LoadBalancers {
			resources = append(resources, &models.ResourceEntity{
				ResourceID: aws.ToString(lb.LoadBalancerArn),
				Provider:   models.ProviderAWS,
				Type:       "load-balancer",
				Region:     opts.Region,
				State:      models.ResourceActive,
				LastSeenAt: now,
			})
		}
		if page.NextMarker == nil {
			break
		}
		marker = page.NextMarker
	}
	return resources, nil
}
