// Package common holds the AWS credential, region and client plumbing shared
// by the billing connector and the action invoker.
package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients. One profile maps to one billing account in
// the analytics pipeline.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the home region for this profile configuration.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds service clients scoped to the home region. Use
	// ConfigForRegion + NewClientSet for region-scoped collection.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations and resolves active regions.
// It is the sole entry point for AWS credential and region management in the
// provider layer.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile.
	// Pass an empty string to load the default profile.
	LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error)

	// LoadAllProfiles returns ProfileConfigs for every profile found in
	// ~/.aws/credentials and ~/.aws/config.
	LoadAllProfiles(ctx context.Context) ([]*ProfileConfig, error)

	// GetActiveRegions returns the regions enabled for the account behind
	// cfg, driving per-region inventory collection.
	GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error)

	// ConfigForRegion clones cfg with the target region set.
	ConfigForRegion(cfg *ProfileConfig, region string) aws.Config
}
