package common

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultAWSClientProvider is the production AWSClientProvider. It reads
// credentials from the standard AWS shared config and credentials files
// using the SDK v2.
//
// Inject a custom ClientFactory via NewDefaultAWSClientProviderWithFactory
// to replace real SDK clients with mocks in unit tests.
type DefaultAWSClientProvider struct {
	factory ClientFactory
}

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider() *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSet. Pass a mock factory in tests.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f}
}

// LoadProfile loads the SDK config for the named profile and returns a
// ProfileConfig with the resolved account ID and initialised clients.
// Pass an empty string to load the default profile.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS profile %q: %w", profileDisplayName(profile), err)
	}

	// Fall back to us-east-1 when the profile has no region configured so
	// that all SDK clients can still be constructed.
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	clients := p.factory(cfg)

	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   accountID,
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// LoadAllProfiles discovers every profile defined in the shared credentials
// and config files and loads each one. Profiles that fail to load are
// skipped so one bad profile does not block the rest.
func (p *DefaultAWSClientProvider) LoadAllProfiles(ctx context.Context) ([]*ProfileConfig, error) {
	names, err := discoverProfileNames()
	if err != nil {
		return nil, fmt.Errorf("discover AWS profiles: %w", err)
	}

	var profiles []*ProfileConfig
	for _, name := range names {
		arg := ""
		if name != "default" {
			arg = name
		}
		pc, loadErr := p.LoadProfile(ctx, arg)
		if loadErr != nil {
			continue
		}
		profiles = append(profiles, pc)
	}
	return profiles, nil
}

// GetActiveRegions returns the regions the account has opted into, via EC2
// DescribeRegions. The call is global and works from any home region.
func (p *DefaultAWSClientProvider) GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error) {
	out, err := cfg.Clients.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions for profile %q: %w", cfg.ProfileName, err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	return regions, nil
}

// ConfigForRegion returns a copy of cfg.Config with Region set to region.
func (p *DefaultAWSClientProvider) ConfigForRegion(cfg *ProfileConfig, region string) aws.Config {
	regional := cfg.Config
	regional.Region = region
	return regional
}

func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}

// discoverProfileNames reads ~/.aws/credentials and ~/.aws/config and returns
// the deduplicated list of profile names found.
func discoverProfileNames() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	credProfiles, err := parseProfilesFromFile(filepath.Join(home, ".aws", "credentials"), false)
	if err != nil {
		return nil, err
	}
	// ~/.aws/config prefixes non-default profiles with "profile ".
	cfgProfiles, err := parseProfilesFromFile(filepath.Join(home, ".aws", "config"), true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all, nil
}

// parseProfilesFromFile scans path for INI section headers and returns the
// profile name from each. A missing file returns nil without an error.
func parseProfilesFromFile(path string, stripProfilePrefix bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var profiles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}
		name := line[1 : len(line)-1]
		if stripProfilePrefix && name != "default" {
			name = strings.TrimPrefix(name, "profile ")
		}
		profiles = append(profiles, strings.TrimSpace(name))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return profiles, nil
}
