package compute

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// ECSAPI is the part of *ecs.Client the backend uses.
type ECSAPI interface {
	DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, in *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
}

type ECS struct {
	api ECSAPI
}

func NewECS(api ECSAPI) *ECS {
	return &ECS{api: api}
}

func (e *ECS) Counts(ctx context.Context, cluster, service string) (Counts, error) {
	out, err := e.api.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return Counts{}, ecsNotFound(err)
	}
	for _, svc := range out.Services {
		// INACTIVE services are deleted ones ECS still remembers.
		if aws.ToString(svc.Status) == "INACTIVE" {
			continue
		}
		return Counts{
			Desired: int(svc.DesiredCount),
			Running: int(svc.RunningCount),
			Pending: int(svc.PendingCount),
		}, nil
	}
	// DescribeServices reports unknown services as failures ("MISSING"),
	// not as an error.
	return Counts{}, ErrServiceNotFound
}

func (e *ECS) SetDesired(ctx context.Context, cluster, service string, count int) error {
	_, err := e.api.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(cluster),
		Service:      aws.String(service),
		DesiredCount: aws.Int32(int32(count)),
	})
	if err != nil {
		return ecsNotFound(err)
	}
	return nil
}

func ecsNotFound(err error) error {
	var (
		noCluster *ecstypes.ClusterNotFoundException
		noService *ecstypes.ServiceNotFoundException
		notActive *ecstypes.ServiceNotActiveException
	)
	if errors.As(err, &noCluster) || errors.As(err, &noService) || errors.As(err, &notActive) {
		return errors.Join(ErrServiceNotFound, err)
	}
	return err
}
