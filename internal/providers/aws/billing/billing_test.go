package billing

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
)

// --- stubs ---

type stubCE struct {
	pages []*ce.GetCostAndUsageOutput
	calls int
}

func (s *stubCE) GetCostAndUsage(_ context.Context, _ *ce.GetCostAndUsageInput, _ ...func(*ce.Options)) (*ce.GetCostAndUsageOutput, error) {
	out := s.pages[s.calls]
	s.calls++
	return out, nil
}

type stubEC2 struct {
	instances []ec2types.Instance
}

func (s *stubEC2) DescribeRegions(_ context.Context, _ *ec2svc.DescribeRegionsInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeRegionsOutput, error) {
	return &ec2svc.DescribeRegionsOutput{}, nil
}

func (s *stubEC2) DescribeInstances(_ context.Context, _ *ec2svc.DescribeInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error) {
	return &ec2svc.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: s.instances}},
	}, nil
}

func (s *stubEC2) StopInstances(_ context.Context, _ *ec2svc.StopInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.StopInstancesOutput, error) {
	return &ec2svc.StopInstancesOutput{}, nil
}

func (s *stubEC2) StartInstances(_ context.Context, _ *ec2svc.StartInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.StartInstancesOutput, error) {
	return &ec2svc.StartInstancesOutput{}, nil
}

func (s *stubEC2) ModifyInstanceAttribute(_ context.Context, _ *ec2svc.ModifyInstanceAttributeInput, _ ...func(*ec2svc.Options)) (*ec2svc.ModifyInstanceAttributeOutput, error) {
	return &ec2svc.ModifyInstanceAttributeOutput{}, nil
}

func (s *stubEC2) CreateTags(_ context.Context, _ *ec2svc.CreateTagsInput, _ ...func(*ec2svc.Options)) (*ec2svc.CreateTagsOutput, error) {
	return &ec2svc.CreateTagsOutput{}, nil
}

func (s *stubEC2) DeleteTags(_ context.Context, _ *ec2svc.DeleteTagsInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteTagsOutput, error) {
	return &ec2svc.DeleteTagsOutput{}, nil
}

type stubCW struct {
	datapoints []cwtypes.Datapoint
}

func (s *stubCW) GetMetricStatistics(_ context.Context, _ *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	return &cloudwatch.GetMetricStatisticsOutput{Datapoints: s.datapoints}, nil
}

type stubRDS struct {
	instances []rdstypes.DBInstance
}

func (s *stubRDS) DescribeDBInstances(_ context.Context, _ *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	return &rds.DescribeDBInstancesOutput{DBInstances: s.instances}, nil
}

func (s *stubRDS) StopDBInstance(_ context.Context, _ *rds.StopDBInstanceInput, _ ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error) {
	return &rds.StopDBInstanceOutput{}, nil
}

func (s *stubRDS) StartDBInstance(_ context.Context, _ *rds.StartDBInstanceInput, _ ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error) {
	return &rds.StartDBInstanceOutput{}, nil
}

type stubELB struct {
	loadBalancers []elbv2types.LoadBalancer
}

func (s *stubELB) DescribeLoadBalancers(_ context.Context, _ *elasticloadbalancingv2.DescribeLoadBalancersInput, _ ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error) {
	return &elasticloadbalancingv2.DescribeLoadBalancersOutput{LoadBalancers: s.loadBalancers}, nil
}

func (s *stubELB) DeleteLoadBalancer(_ context.Context, _ *elasticloadbalancingv2.DeleteLoadBalancerInput, _ ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DeleteLoadBalancerOutput, error) {
	return &elasticloadbalancingv2.DeleteLoadBalancerOutput{}, nil
}

// --- tests ---

func TestCollectBillingRecords(t *testing.T) {
	stub := &stubCE{pages: []*ce.GetCostAndUsageOutput{
		{
			ResultsByTime: []cetypes.ResultByTime{
				{
					TimePeriod: &cetypes.DateInterval{
						Start: aws.String("2026-08-01"),
						End:   aws.String("2026-08-02"),
					},
					Groups: []cetypes.Group{
						{
							Keys: []string{"Amazon Elastic Compute Cloud - Compute"},
							Metrics: map[string]cetypes.MetricValue{
								"UnblendedCost": {Amount: aws.String("123.45"), Unit: aws.String("USD")},
								"UsageQuantity": {Amount: aws.String("720"), Unit: aws.String("Hrs")},
							},
						},
						{
							Keys: []string{"Amazon Relational Database Service"},
							Metrics: map[string]cetypes.MetricValue{
								"UnblendedCost": {Amount: aws.String("80.00"), Unit: aws.String("USD")},
							},
						},
					},
				},
			},
			NextPageToken: aws.String("page2"),
		},
		{
			ResultsByTime: []cetypes.ResultByTime{
				{
					TimePeriod: &cetypes.DateInterval{
						Start: aws.String("2026-08-02"),
						End:   aws.String("2026-08-03"),
					},
					Groups: []cetypes.Group{
						{
							Keys: []string{"Amazon Elastic Compute Cloud - Compute"},
							Metrics: map[string]cetypes.MetricValue{
								"UnblendedCost": {Amount: aws.String("130.00"), Unit: aws.String("USD")},
							},
						},
					},
				},
			},
		},
	}}

	records, err := collectBillingRecords(context.Background(), stub, "111122223333", "2026-08-01", "2026-08-03")
	if err != nil {
		t.Fatalf("collectBillingRecords: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected pagination across 2 pages, got %d calls", stub.calls)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	first := records[0]
	if first["service"] != "Amazon Elastic Compute Cloud - Compute" {
		t.Errorf("service = %v", first["service"])
	}
	if first["unblended_cost"] != "123.45" {
		t.Errorf("unblended_cost = %v, want the raw string amount", first["unblended_cost"])
	}
	if first["timestamp"] != "2026-08-01" {
		t.Errorf("timestamp = %v", first["timestamp"])
	}
	if first["currency"] != "USD" {
		t.Errorf("currency = %v", first["currency"])
	}
	if first["usage_quantity"] != "720" {
		t.Errorf("usage_quantity = %v", first["usage_quantity"])
	}
}

func TestCollectRegionEC2(t *testing.T) {
	launch := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	stubEC2Client := &stubEC2{instances: []ec2types.Instance{
		{
			InstanceId: aws.String("i-running"),
			State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
			LaunchTime: &launch,
			CpuOptions: &ec2types.CpuOptions{
				CoreCount:      aws.Int32(2),
				ThreadsPerCore: aws.Int32(2),
			},
			Tags: []ec2types.Tag{{Key: aws.String("env"), Value: aws.String("dev")}},
		},
		{
			InstanceId: aws.String("i-stopped"),
			State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped},
		},
	}}
	sampleTime := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	stubCWClient := &stubCW{datapoints: []cwtypes.Datapoint{
		{Timestamp: aws.Time(sampleTime.Add(time.Hour)), Average: aws.Float64(4.2)},
		{Timestamp: aws.Time(sampleTime), Average: aws.Float64(3.1)},
	}}

	factory := func(cfg aws.Config) *common.ClientSet {
		return &common.ClientSet{
			EC2:        stubEC2Client,
			CloudWatch: stubCWClient,
			RDS:        &stubRDS{},
			ELBv2:      &stubELB{},
		}
	}
	collector := NewDefaultCollectorWithFactory(factory, zap.NewNop())

	resources, err := collector.CollectRegion(context.Background(), aws.Config{}, CollectOptions{
		Region: "us-east-1", AccountID: "111122223333", DaysBack: 30,
	})
	if err != nil {
		t.Fatalf("CollectRegion: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("got %d resources, want 2", len(resources))
	}

	running := resources[0]
	if running.ResourceID != "i-running" || running.State != models.ResourceActive {
		t.Fatalf("unexpected first resource: %+v", running)
	}
	if running.ProvisionedCapacity != 4 {
		t.Errorf("capacity = %v, want 4 vCPUs (2 cores x 2 threads)", running.ProvisionedCapacity)
	}
	if len(running.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(running.Samples))
	}
	// Datapoints arrive unordered and must come back sorted.
	if !running.Samples[0].Timestamp.Before(running.Samples[1].Timestamp) {
		t.Error("samples not sorted by timestamp")
	}
	if running.Tags["env"] != "dev" {
		t.Errorf("tags = %v", running.Tags)
	}

	stopped := resources[1]
	if stopped.State != models.ResourceStopped {
		t.Errorf("stopped instance state = %q", stopped.State)
	}
	if len(stopped.Samples) != 0 {
		t.Error("stopped instances must not carry utilization samples")
	}
}

func TestCollectRegionRDSStates(t *testing.T) {
	factory := func(cfg aws.Config) *common.ClientSet {
		return &common.ClientSet{
			EC2:        &stubEC2{},
			CloudWatch: &stubCW{},
			RDS: &stubRDS{instances: []rdstypes.DBInstance{
				{
					DBInstanceIdentifier: aws.String("db-live"),
					DBInstanceStatus:     aws.String("available"),
					AllocatedStorage:     aws.Int32(100),
				},
				{
					DBInstanceIdentifier: aws.String("db-parked"),
					DBInstanceStatus:     aws.String("stopped"),
				},
			}},
			ELBv2: &stubELB{},
		}
	}
	collector := NewDefaultCollectorWithFactory(factory, zap.NewNop())

	resources, err := collector.CollectRegion(context.Background(), aws.Config{}, CollectOptions{Region: "eu-west-1"})
	if err != nil {
		t.Fatalf("CollectRegion: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("got %d resources, want 2", len(resources))
	}
	if resources[0].Type != "rds-instance" || resources[0].State != models.ResourceActive {
		t.Errorf("unexpected live DB: %+v", resources[0])
	}
	if resources[0].ProvisionedCapacity != 100 {
		t.Errorf("capacity = %v, want 100 GB", resources[0].ProvisionedCapacity)
	}
	if resources[1].State != models.ResourceStopped {
		t.Errorf("parked DB state = %q", resources[1].State)
	}
}
