package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/config"
	"github.com/Lohithravi69/Cloud-Cost-optimizer/internal/providers/aws/common"
)

// doctorProvider is a canned AWSClientProvider for diagnostics tests.
type doctorProvider struct {
	profile    *common.ProfileConfig
	profileErr error
	regions    []string
	regionsErr error
}

func (p *doctorProvider) LoadProfile(context.Context, string) (*common.ProfileConfig, error) {
	return p.profile, p.profileErr
}

func (p *doctorProvider) LoadAllProfiles(context.Context) ([]*common.ProfileConfig, error) {
	return []*common.ProfileConfig{p.profile}, p.profileErr
}

func (p *doctorProvider) GetActiveRegions(context.Context, *common.ProfileConfig) ([]string, error) {
	return p.regions, p.regionsErr
}

func (p *doctorProvider) ConfigForRegion(*common.ProfileConfig, string) aws.Config {
	return aws.Config{}
}

func healthyProvider() *doctorProvider {
	return &doctorProvider{
		profile: &common.ProfileConfig{ProfileName: "default", AccountID: "111122223333", Region: "us-east-1"},
		regions: []string{"us-east-1"},
	}
}

func TestCollectDoctorResult_Healthy(t *testing.T) {
	result := collectDoctorResult(context.Background(), healthyProvider(), config.Default(), "")

	if !result.AWS.Credentials || !result.AWS.RegionsOK {
		t.Errorf("AWS checks failed: %+v", result.AWS)
	}
	if result.AWS.AccountID != "111122223333" {
		t.Errorf("account ID = %q", result.AWS.AccountID)
	}
	if result.Storage.Backend != "memory" || !result.Storage.Reachable {
		t.Errorf("storage = %+v", result.Storage)
	}
	if result.Prometheus.Configured {
		t.Error("prometheus should not be configured by default")
	}
	if !result.OverallHealthy {
		t.Errorf("expected healthy result, got %+v", result)
	}
}

func TestCollectDoctorResult_AWSFailure(t *testing.T) {
	provider := &doctorProvider{profileErr: errors.New("no credentials found")}
	result := collectDoctorResult(context.Background(), provider, config.Default(), "prod")

	if result.AWS.Credentials {
		t.Error("credentials must be reported as failed")
	}
	if result.AWS.Profile != "prod" {
		t.Errorf("profile = %q", result.AWS.Profile)
	}
	if !strings.Contains(result.AWS.Error, "no credentials") {
		t.Errorf("error = %q", result.AWS.Error)
	}
	if result.OverallHealthy {
		t.Error("result must be unhealthy when AWS checks fail")
	}
}

func TestCollectDoctorResult_PolicyValidation(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(valid, []byte("version: 1\nauto_approve:\n  enabled: true\n  savings_cap_usd: 50\n"), 0o600); err != nil {
		t.Fatalf("writing policy: %v", err)
	}

	cfg := config.Default()
	cfg.PolicyPath = valid
	result := collectDoctorResult(context.Background(), healthyProvider(), cfg, "")
	if !result.Policy.Present || !result.Policy.Valid {
		t.Errorf("valid policy rejected: %+v", result.Policy)
	}
	if !result.OverallHealthy {
		t.Error("expected healthy result with valid policy")
	}

	invalid := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(invalid, []byte("version: 1\nrules:\n  NO_SUCH_RULE:\n    enabled: false\n"), 0o600); err != nil {
		t.Fatalf("writing policy: %v", err)
	}
	cfg.PolicyPath = invalid
	result = collectDoctorResult(context.Background(), healthyProvider(), cfg, "")
	if result.Policy.Valid {
		t.Error("unknown rule ID must fail validation")
	}
	if result.OverallHealthy {
		t.Error("result must be unhealthy with an invalid policy")
	}
}

func TestRunDoctor_JSONOutput(t *testing.T) {
	var buf strings.Builder
	result, err := runDoctor(context.Background(), healthyProvider(), config.Default(), &buf, "json", "")
	if err != nil {
		t.Fatalf("runDoctor: %v", err)
	}
	if !result.OverallHealthy {
		t.Fatalf("expected healthy result, got %+v", result)
	}

	var decoded DoctorResult
	if err := json.Unmarshal([]byte(buf.String()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if !decoded.OverallHealthy {
		t.Error("decoded result should be healthy")
	}
}

func TestRunDoctor_TableOutput(t *testing.T) {
	var buf strings.Builder
	if _, err := runDoctor(context.Background(), healthyProvider(), config.Default(), &buf, "table", ""); err != nil {
		t.Fatalf("runDoctor: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Environment Diagnostics", "AWS:", "Storage:", "Overall: HEALTHY"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q\ngot:\n%s", want, out)
		}
	}
}
