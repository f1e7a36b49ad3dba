package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/idler/pkg/resource"
)

// Delete removes a resource, dispatching on its type.
// Databases are deleted without a final snapshot.
func (p *Plugin) Delete(ctx context.Context, typ resource.Type, id string) error {
	var err error
	switch typ {
	case resource.TypeCompute:
		_, err = p.ec2Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
			InstanceIds: []string{id},
		})
		if err != nil {
			err = fmt.Errorf("terminate instance: %w", err)
		}
	case resource.TypeManagedDB:
		_, err = p.rdsClient.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
			DBInstanceIdentifier: aws.String(id),
			SkipFinalSnapshot:    aws.Bool(true),
		})
		if err != nil {
			err = fmt.Errorf("delete db instance: %w", err)
		}
	case resource.TypeVolume:
		_, err = p.ec2Client.DeleteVolume(ctx, &ec2.DeleteVolumeInput{VolumeId: aws.String(id)})
		if err != nil {
			err = fmt.Errorf("delete volume: %w", err)
		}
	case resource.TypeSnapshot:
		_, err = p.ec2Client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(id)})
		if err != nil {
			err = fmt.Errorf("delete snapshot: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", resource.ErrUnknownType, typ)
	}
	if err != nil {
		return err
	}

	log.Info().Str("id", id).Str("type", string(typ)).Str("region", p.region).Msg("resource deleted")
	return nil
}
