package compute

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"holiday/logger"
)

type fakeECS struct {
	services  map[string]ecstypes.Service
	describes []string
	updates   []ecs.UpdateServiceInput
}

func (f *fakeECS) DescribeServices(_ context.Context, in *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	cluster := aws.ToString(in.Cluster)
	f.describes = append(f.describes, cluster)
	out := &ecs.DescribeServicesOutput{}
	for _, name := range in.Services {
		if svc, ok := f.services[cluster+"/"+name]; ok {
			out.Services = append(out.Services, svc)
			continue
		}
		out.Failures = append(out.Failures, ecstypes.Failure{Arn: aws.String(name), Reason: aws.String("MISSING")})
	}
	return out, nil
}

func (f *fakeECS) UpdateService(_ context.Context, in *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	key := aws.ToString(in.Cluster) + "/" + aws.ToString(in.Service)
	if _, ok := f.services[key]; !ok {
		return nil, &ecstypes.ServiceNotFoundException{Message: aws.String("Service not found.")}
	}
	f.updates = append(f.updates, *in)
	return &ecs.UpdateServiceOutput{}, nil
}

func TestECSCounts(t *testing.T) {
	f := &fakeECS{services: map[string]ecstypes.Service{
		"bazaar-cluster/bazaar": {ServiceName: aws.String("bazaar"), Status: aws.String("ACTIVE"), DesiredCount: 2, RunningCount: 1, PendingCount: 1},
		"old-cluster/old":       {ServiceName: aws.String("old"), Status: aws.String("INACTIVE")},
	}}
	e := NewECS(f)
	ctx := context.Background()

	c, err := e.Counts(ctx, "bazaar-cluster", "bazaar")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if c != (Counts{Desired: 2, Running: 1, Pending: 1}) {
		t.Errorf("Counts = %+v", c)
	}

	if _, err := e.Counts(ctx, "old-cluster", "old"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("inactive service error = %v", err)
	}
	if _, err := e.Counts(ctx, "neon-web-cluster", "neon-web-service"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("missing service error = %v", err)
	}
}

func TestECSSetDesired(t *testing.T) {
	f := &fakeECS{services: map[string]ecstypes.Service{
		"bazaar-cluster/bazaar": {ServiceName: aws.String("bazaar"), Status: aws.String("ACTIVE"), DesiredCount: 1, RunningCount: 1},
	}}
	e := NewECS(f)
	ctx := context.Background()

	if err := e.SetDesired(ctx, "bazaar-cluster", "bazaar", 0); err != nil {
		t.Fatalf("SetDesired: %v", err)
	}
	if len(f.updates) != 1 || aws.ToInt32(f.updates[0].DesiredCount) != 0 {
		t.Errorf("updates = %+v", f.updates)
	}

	err := e.SetDesired(ctx, "neon-web-cluster", "neon-web-service", 1)
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("SetDesired(missing) = %v, want ErrServiceNotFound", err)
	}
}

func TestAdapterOverECSStartsMissingServiceFails(t *testing.T) {
	a := New(NewECS(&fakeECS{services: map[string]ecstypes.Service{}}), logger.Nop(), 1)
	_, err := a.EnsureScale(context.Background(), "bazaar", 1)
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("EnsureScale = %v", err)
	}
}
