package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/yairfalse/idler/pkg/resource"
)

const (
	stateStopped   = "stopped"
	stateAvailable = "available"
	ownerSelf      = "self"
	nameTagKey     = "Name"
)

// listStoppedInstances lists EC2 instances in the stopped state.
// Only the first page is read.
func (p *Plugin) listStoppedInstances(ctx context.Context) ([]resource.Resource, error) {
	output, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{stateStopped}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe instances: %w", err)
	}

	resources := make([]resource.Resource, 0)
	for _, reservation := range output.Reservations {
		for _, instance := range reservation.Instances {
			resources = append(resources, p.convertEC2Instance(instance))
		}
	}
	return resources, nil
}

func (p *Plugin) convertEC2Instance(instance ec2types.Instance) resource.Resource {
	state := stateStopped
	if instance.State != nil {
		state = string(instance.State.Name)
	}
	r := p.newResource(aws.ToString(instance.InstanceId), resource.TypeCompute, state, extractNameTag(instance.Tags))
	r.LastUsed = aws.ToTime(instance.LaunchTime)
	r.Details = resource.ComputeDetails{InstanceType: string(instance.InstanceType)}
	return r
}

// listStoppedDatabases lists RDS instances and keeps the stopped ones.
// DescribeDBInstances has no server-side status filter.
func (p *Plugin) listStoppedDatabases(ctx context.Context) ([]resource.Resource, error) {
	output, err := p.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe db instances: %w", err)
	}

	resources := make([]resource.Resource, 0)
	for _, instance := range output.DBInstances {
		if aws.ToString(instance.DBInstanceStatus) != stateStopped {
			continue
		}
		resources = append(resources, p.convertRDSInstance(instance))
	}
	return resources, nil
}

func (p *Plugin) convertRDSInstance(instance rdstypes.DBInstance) resource.Resource {
	r := p.newResource(aws.ToString(instance.DBInstanceIdentifier), resource.TypeManagedDB,
		aws.ToString(instance.DBInstanceStatus), extractRDSNameTag(instance.TagList))
	r.LastUsed = aws.ToTime(instance.InstanceCreateTime)
	r.Details = resource.ManagedDBDetails{
		InstanceType: aws.ToString(instance.DBInstanceClass),
		Engine:       aws.ToString(instance.Engine),
	}
	return r
}

// listAvailableVolumes lists EBS volumes not attached to any instance.
func (p *Plugin) listAvailableVolumes(ctx context.Context) ([]resource.Resource, error) {
	output, err := p.ec2Client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("status"), Values: []string{stateAvailable}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe volumes: %w", err)
	}

	resources := make([]resource.Resource, 0, len(output.Volumes))
	for _, vol := range output.Volumes {
		resources = append(resources, p.convertEBSVolume(vol))
	}
	return resources, nil
}

func (p *Plugin) convertEBSVolume(vol ec2types.Volume) resource.Resource {
	r := p.newResource(aws.ToString(vol.VolumeId), resource.TypeVolume, string(vol.State), extractNameTag(vol.Tags))
	r.LastUsed = aws.ToTime(vol.CreateTime)
	r.Details = resource.VolumeDetails{
		VolumeSize: aws.ToInt32(vol.Size),
		VolumeType: string(vol.VolumeType),
	}
	return r
}

// listOwnedSnapshots lists EBS snapshots owned by the caller's account.
func (p *Plugin) listOwnedSnapshots(ctx context.Context) ([]resource.Resource, error) {
	output, err := p.ec2Client.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{ownerSelf},
	})
	if err != nil {
		return nil, fmt.Errorf("describe snapshots: %w", err)
	}

	resources := make([]resource.Resource, 0, len(output.Snapshots))
	for _, snap := range output.Snapshots {
		resources = append(resources, p.convertSnapshot(snap))
	}
	return resources, nil
}

func (p *Plugin) convertSnapshot(snap ec2types.Snapshot) resource.Resource {
	r := p.newResource(aws.ToString(snap.SnapshotId), resource.TypeSnapshot, string(snap.State), extractNameTag(snap.Tags))
	r.LastUsed = aws.ToTime(snap.StartTime)
	r.Details = resource.SnapshotDetails{SnapshotSize: aws.ToInt32(snap.VolumeSize)}
	return r
}

// extractNameTag extracts the Name tag from EC2 tags.
func extractNameTag(tags []ec2types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == nameTagKey {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

// extractRDSNameTag extracts the Name tag from RDS tags.
func extractRDSNameTag(tags []rdstypes.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == nameTagKey {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
