// Package actions is the AWS implementation of the workflow's provider
// automation surface. It translates approved optimization actions into SDK
// calls against the resource's home region.
package actions

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"go.uber.org/zap"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/storage"
)

// ScheduleTagKey marks a resource as managed by an off-hours schedule.
// Schedule actions tag; unschedule removes the tag. The actual start/stop
// cycling is driven by a separate scheduled pipeline run.
const ScheduleTagKey = "cco:schedule"

// Invoker executes optimization actions against AWS. It resolves each
// resource's type and region through the store, builds region-scoped clients
// and dispatches the matching SDK call.
type Invoker struct {
	profile  *common.ProfileConfig
	provider common.AWSClientProvider
	factory  common.ClientFactory
	store    storage.Store
	logger   *zap.Logger
}

// NewInvoker returns an Invoker for the given profile.
func NewInvoker(profile *common.ProfileConfig, provider common.AWSClientProvider, factory common.ClientFactory, store storage.Store, logger *zap.Logger) *Invoker {
	if factory == nil {
		factory = common.NewClientSet
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		profile:  profile,
		provider: provider,
		factory:  factory,
		store:    store,
		logger:   logger,
	}
}

// clientsFor builds service clients scoped to the resource's region.
func (inv *Invoker) clientsFor(ctx context.Context, resourceID string) (*common.ClientSet, *models.ResourceEntity, error) {
	res, err := inv.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving resource %s: %w", resourceID, err)
	}
	cfg := inv.provider.ConfigForRegion(inv.profile, res.Region)
	return inv.factory(cfg), res, nil
}

// Invoke performs the action. Provider-side failures wrap
// models.ErrProviderCallFailed so the executor retries them.
func (inv *Invoker) Invoke(ctx context.Context, action models.ActionType, resourceID string, params map[string]string) error {
	clients, res, err := inv.clientsFor(ctx, resourceID)
	if err != nil {
		return err
	}

	inv.logger.Info("invoking provider action",
		zap.String("action", string(action)),
		zap.String("resource_id", resourceID),
		zap.String("resource_type", res.Type),
		zap.String("region", res.Region))

	switch {
	case res.Type == "ec2-instance":
		return inv.invokeEC2(ctx, clients.EC2, action, resourceID, params)
	case res.Type == "rds-instance":
		return inv.invokeRDS(ctx, clients.RDS, action, resourceID)
	case res.Type == "load-balancer" && action == models.ActionDelete:
		if _, err := clients.ELBv2.DeleteLoadBalancer(ctx, &elasticloadbalancingv2.DeleteLoadBalancerInput{
			LoadBalancerArn: aws.String(resourceID),
		}); err != nil {
			return fmt.Errorf("DeleteLoadBalancer %s: %w (%v)", resourceID, models.ErrProviderCallFailed, err)
		}
		return nil
	default:
		return fmt.Errorf("action %s is not supported for resource type %s", action, res.Type)
	}
}

func (inv *Invoker) invokeEC2(ctx context.Context, client common.EC2Client, action models.ActionType, instanceID string, params map[string]string) error {
	switch action {
	case models.ActionStop:
		_, err := client.StopInstances(ctx, &ec2svc.StopInstancesInput{
			InstanceIds: []string{instanceID},
		})
		if err != nil {
			return fmt.Errorf("StopInstances %s: %w (%v)", instanceID, models.ErrProviderCallFailed, err)
		}
		return nil

	case models.ActionStart:
		_, err := client.StartInstances(ctx, &ec2svc.StartInstancesInput{
			InstanceIds: []string{instanceID},
		})
		if err != nil {
			return fmt.Errorf("StartInstances %s: %w (%v)", instanceID, models.ErrProviderCallFailed, err)
		}
		return nil

	case models.ActionRightsize:
		targetType, err := inv.resolveTargetType(ctx, client, instanceID, params)
		if err != nil {
			return err
		}
		_, err = client.ModifyInstanceAttribute(ctx, &ec2svc.ModifyInstanceAttributeInput{
			InstanceId: aws.String(instanceID),
			InstanceType: &ec2types.AttributeValue{
				Value: aws.String(targetType),
			},
		})
		if err != nil {
			return fmt.Errorf("ModifyInstanceAttribute %s: %w (%v)", instanceID, models.ErrProviderCallFailed, err)
		}
		return nil

	case models.ActionSchedule:
		schedule := params["schedule"]
		if schedule == "" {
			schedule = "off-hours"
		}
		_, err := client.CreateTags(ctx, &ec2svc.CreateTagsInput{
			Resources: []string{instanceID},
			Tags: []ec2types.Tag{
				{Key: aws.String(ScheduleTagKey), Value: aws.String(schedule)},
			},
		})
		if err != nil {
			return fmt.Errorf("CreateTags %s: %w (%v)", instanceID, models.ErrProviderCallFailed, err)
		}
		return nil

	case models.ActionUnschedule:
		_, err := client.DeleteTags(ctx, &ec2svc.DeleteTagsInput{
			Resources: []string{instanceID},
			Tags: []ec2types.Tag{
				{Key: aws.String(ScheduleTagKey)},
			},
		})
		if err != nil {
			return fmt.Errorf("DeleteTags %s: %w (%v)", instanceID, models.ErrProviderCallFailed, err)
		}
		return nil

	default:
		return fmt.Errorf("action %s is not supported for EC2 instances", action)
	}
}

func (inv *Invoker) invokeRDS(ctx context.Context, client common.RDSClient, action models.ActionType, dbID string) error {
	switch action {
	case models.ActionStop:
		_, err := client.StopDBInstance(ctx, &rds.StopDBInstanceInput{
			DBInstanceIdentifier: aws.String(dbID),
		})
		if err != nil {
			return fmt.Errorf("StopDBInstance %s: %w (%v)", dbID, models.ErrProviderCallFailed, err)
		}
		return nil
	case models.ActionStart:
		_, err := client.StartDBInstance(ctx, &rds.StartDBInstanceInput{
			DBInstanceIdentifier: aws.String(dbID),
		})
		if err != nil {
			return fmt.Errorf("StartDBInstance %s: %w (%v)", dbID, models.ErrProviderCallFailed, err)
		}
		return nil
	default:
		return fmt.Errorf("action %s is not supported for RDS instances", action)
	}
}

// State queries the provider for the resource's live state. Used by the
// executor between retries and by crash reconciliation.
func (inv *Invoker) State(ctx context.Context, resourceID string) (models.ResourceState, error) {
	clients, res, err := inv.clientsFor(ctx, resourceID)
	if err != nil {
		return "", err
	}

	switch res.Type {
	case "ec2-instance":
		out, err := clients.EC2.DescribeInstances(ctx, &ec2svc.DescribeInstancesInput{
			InstanceIds: []string{resourceID},
		})
		if err != nil {
			return "", fmt.Errorf("DescribeInstances %s: %w (%v)", resourceID, models.ErrProviderCallFailed, err)
		}
		for _, r := range out.Reservations {
			for _, inst := range r.Instances {
				if inst.State == nil {
					continue
				}
				switch inst.State.Name {
				case ec2types.InstanceStateNameStopped, ec2types.InstanceStateNameStopping:
					return models.ResourceStopped, nil
				default:
					return models.ResourceActive, nil
				}
			}
		}
		return "", fmt.Errorf("instance %s not found in provider response", resourceID)

	case "rds-instance":
		out, err := clients.RDS.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
			DBInstanceIdentifier: aws.String(resourceID),
		})
		if err != nil {
			return "", fmt.Errorf("DescribeDBInstances %s: %w (%v)", resourceID, models.ErrProviderCallFailed, err)
		}
		for _, db := range out.DBInstances {
			if aws.ToString(db.DBInstanceStatus) == "stopped" {
				return models.ResourceStopped, nil
			}
			return models.ResourceActive, nil
		}
		return "", fmt.Errorf("DB instance %s not found in provider response", resourceID)

	default:
		// No live state query for this type; fall back to the stored view.
		return res.State, nil
	}
}
