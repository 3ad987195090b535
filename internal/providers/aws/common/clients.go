package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations this project calls. Narrow
// interfaces instead of full SDK clients make mocking in unit tests trivial:
// a stub struct returning canned data satisfies the interface.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used to resolve account identity.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// EC2Client covers EC2 operations for region discovery, instance inventory,
// and the stop/start/rightsize actions the executor issues.
type EC2Client interface {
	DescribeRegions(
		ctx context.Context,
		params *ec2.DescribeRegionsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeRegionsOutput, error)

	DescribeInstances(
		ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)

	StopInstances(
		ctx context.Context,
		params *ec2.StopInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.StopInstancesOutput, error)

	StartInstances(
		ctx context.Context,
		params *ec2.StartInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.StartInstancesOutput, error)

	ModifyInstanceAttribute(
		ctx context.Context,
		params *ec2.ModifyInstanceAttributeInput,
		optFns ...func(*ec2.Options),
	) (*ec2.ModifyInstanceAttributeOutput, error)

	CreateTags(
		ctx context.Context,
		params *ec2.CreateTagsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.CreateTagsOutput, error)

	DeleteTags(
		ctx context.Context,
		params *ec2.DeleteTagsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DeleteTagsOutput, error)
}

// CloudWatchClient covers the metric retrieval used to build utilization
// samples for the rule engine.
type CloudWatchClient interface {
	GetMetricStatistics(
		ctx context.Context,
		params *cloudwatch.GetMetricStatisticsInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// CostExplorerClient covers the Cost Explorer operations used by the billing
// connector.
type CostExplorerClient interface {
	GetCostAndUsage(
		ctx context.Context,
		params *ce.GetCostAndUsageInput,
		optFns ...func(*ce.Options),
	) (*ce.GetCostAndUsageOutput, error)
}

// RDSClient covers the RDS operations for inventory and the stop action.
type RDSClient interface {
	DescribeDBInstances(
		ctx context.Context,
		params *rds.DescribeDBInstancesInput,
		optFns ...func(*rds.Options),
	) (*rds.DescribeDBInstancesOutput, error)

	StopDBInstance(
		ctx context.Context,
		params *rds.StopDBInstanceInput,
		optFns ...func(*rds.Options),
	) (*rds.StopDBInstanceOutput, error)

	StartDBInstance(
		ctx context.Context,
		params *rds.StartDBInstanceInput,
		optFns ...func(*rds.Options),
	) (*rds.StartDBInstanceOutput, error)
}

// ELBv2Client covers the load balancer operations for inventory and the
// delete action.
type ELBv2Client interface {
	DescribeLoadBalancers(
		ctx context.Context,
		params *elbv2.DescribeLoadBalancersInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DescribeLoadBalancersOutput, error)

	DeleteLoadBalancer(
		ctx context.Context,
		params *elbv2.DeleteLoadBalancerInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DeleteLoadBalancerOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds initialised AWS service clients for one profile and region.
// All fields are interfaces so tests can substitute stubs without importing
// the SDK in test files.
type ClientSet struct {
	STS          STSClient
	EC2          EC2Client
	CloudWatch   CloudWatchClient
	CostExplorer CostExplorerClient
	RDS          RDSClient
	ELBv2        ELBv2Client
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. Cost Explorer is always
// pointed at us-east-1 because it is a global service only reachable there.
func NewClientSet(cfg aws.Config) *ClientSet {
	ceCfg := cfg
	ceCfg.Region = "us-east-1"

	return &ClientSet{
		STS:          sts.NewFromConfig(cfg),
		EC2:          ec2.NewFromConfig(cfg),
		CloudWatch:   cloudwatch.NewFromConfig(cfg),
		CostExplorer: ce.NewFromConfig(ceCfg),
		RDS:          rds.NewFromConfig(cfg),
		ELBv2:        elbv2.NewFromConfig(cfg),
	}
}
