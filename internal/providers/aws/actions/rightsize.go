package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/models"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
)

// instanceSizes is the nominal vCPU count per size suffix for the
// current-generation families the rightsizer targets. Burstable families
// deviate slightly, but a size chosen here always covers the requested
// capacity.
var instanceSizes = []struct {
	suffix string
	vcpus  float64
}{
	{"medium", 1},
	{"large", 2},
	{"xlarge", 4},
	{"2xlarge", 8},
	{"4xlarge", 16},
	{"8xlarge", 32},
	{"12xlarge", 48},
	{"16xlarge", 64},
	{"24xlarge", 96},
}

// resolveTargetType determines the instance type to rightsize to. An explicit
// target_instance_type wins; otherwise target_capacity (vCPUs) is mapped onto
// the smallest size of the instance's current family that still covers it.
// Recommendations are provider-agnostic and speak in capacity units, so the
// capacity path is the one engine-generated drafts take.
func (inv *Invoker) resolveTargetType(ctx context.Context, client common.EC2Client, instanceID string, params map[string]string) (string, error) {
	if t := params["target_instance_type"]; t != "" {
		return t, nil
	}

	capStr := params["target_capacity"]
	if capStr == "" {
		return "", fmt.Errorf("rightsize of %s requires target_instance_type or target_capacity", instanceID)
	}
	capacity, err := strconv.ParseFloat(capStr, 64)
	if err != nil || capacity <= 0 {
		return "", fmt.Errorf("rightsize of %s: invalid target_capacity %q", instanceID, capStr)
	}

	current, err := currentInstanceType(ctx, client, instanceID)
	if err != nil {
		return "", err
	}
	return targetTypeInFamily(current, capacity)
}

func currentInstanceType(ctx context.Context, client common.EC2Client, instanceID string) (string, error) {
	out, err := client.DescribeInstances(ctx, &ec2svc.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", fmt.Errorf("DescribeInstances %s: %w (%v)", instanceID, models.ErrProviderCallFailed, err)
	}
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if inst.InstanceType != "" {
				return string(inst.InstanceType), nil
			}
		}
	}
	return "", fmt.Errorf("instance %s reports no instance type", instanceID)
}

// targetTypeInFamily picks the smallest size in currentType's family whose
// nominal vCPU count covers capacity.
func targetTypeInFamily(currentType string, capacity float64) (string, error) {
	family, _, ok := strings.Cut(currentType, ".")
	if !ok {
		return "", fmt.Errorf("unparseable instance type %q", currentType)
	}
	for _, size := range instanceSizes {
		if size.vcpus >= capacity {
			return family + "." + size.suffix, nil
		}
	}
	return "", fmt.Errorf("no %s size covers %.0f vCPUs", family, capacity)
}
