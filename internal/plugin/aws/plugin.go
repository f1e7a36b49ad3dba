// Package aws implements the AWS inventory plugin for idler.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/idler/internal/plugin"
	"github.com/yairfalse/idler/pkg/resource"
)

// Plugin lists idle AWS resources in one region.
type Plugin struct {
	region    string
	accountID string

	// AWS clients (interfaces for testability)
	ec2Client EC2API
	rdsClient RDSAPI
}

// Config holds AWS plugin configuration.
type Config struct {
	Region  string
	Profile string
}

// New creates a new AWS plugin.
func New(ctx context.Context, cfg Config) (*Plugin, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	accountID, err := getAccountID(ctx, sts.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("get account id: %w", err)
	}

	log.Debug().Str("region", cfg.Region).Str("account", accountID).Msg("aws plugin ready")

	return NewWithClients(cfg.Region, accountID, ec2.NewFromConfig(awsCfg), rds.NewFromConfig(awsCfg)), nil
}

// NewWithClients builds a plugin around existing clients.
func NewWithClients(region, accountID string, ec2Client EC2API, rdsClient RDSAPI) *Plugin {
	return &Plugin{
		region:    region,
		accountID: accountID,
		ec2Client: ec2Client,
		rdsClient: rdsClient,
	}
}

func getAccountID(ctx context.Context, client STSAPI) (string, error) {
	output, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	if output.Account == nil {
		return "unknown", nil
	}
	return aws.ToString(output.Account), nil
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "aws"
}

// Region returns the configured region.
func (p *Plugin) Region() string {
	return p.region
}

// AccountID returns the account the credentials belong to.
func (p *Plugin) AccountID() string {
	return p.accountID
}

// Queries returns the four idle-resource queries in listing order.
func (p *Plugin) Queries() []plugin.Query {
	return []plugin.Query{
		{Type: resource.TypeCompute, Fn: p.listStoppedInstances},
		{Type: resource.TypeManagedDB, Fn: p.listStoppedDatabases},
		{Type: resource.TypeVolume, Fn: p.listAvailableVolumes},
		{Type: resource.TypeSnapshot, Fn: p.listOwnedSnapshots},
	}
}

// helper to create resource with common fields
func (p *Plugin) newResource(id string, typ resource.Type, state, name string) resource.Resource {
	if name == "" {
		name = id
	}
	return resource.Resource{
		ID:     id,
		Type:   typ,
		Name:   name,
		Region: p.region,
		State:  state,
		Cost:   0,
	}
}
