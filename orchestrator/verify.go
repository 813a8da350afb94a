package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"holiday/compute"
	"holiday/logger"
	"holiday/routing"
)

type FleetState string

const (
	FleetRunning       FleetState = "running"
	FleetStopped       FleetState = "stopped"
	FleetTransitioning FleetState = "transitioning"
)

// DomainStatus is what verify found for one active domain.
type DomainStatus struct {
	Domain       string
	Service      string
	Key          string
	Priority     int
	ObjectExists bool
	Target       routing.Target
}

type Verification struct {
	Bucket   string
	BucketOK bool
	Domains  []DomainStatus
	Services []compute.ServiceState
	Fleet    FleetState
}

// Verify reads the current state of every managed resource without
// changing anything.
func (o *Orchestrator) Verify(ctx context.Context) (*Verification, error) {
	domains := o.table.Domains()
	v := &Verification{Bucket: o.storage.Bucket(), Domains: make([]DomainStatus, len(domains))}

	if err := o.bucketHealthy(ctx); err != nil {
		o.log.Warn("bucket check failed", logger.String("bucket", v.Bucket), logger.Error(err))
	} else {
		v.BucketOK = true
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, d := range domains {
		g.Go(func() error {
			callCtx, cancel := o.callContext(ctx)
			defer cancel()

			svc, _ := o.table.ServiceFor(d)
			st := DomainStatus{
				Domain:   d,
				Service:  svc,
				Key:      o.storage.KeyFor(d),
				Priority: o.router.PriorityFor(d),
			}
			exists, err := o.storage.ObjectExists(callCtx, d)
			if err != nil {
				return fmt.Errorf("verify object for %s: %w", d, err)
			}
			st.ObjectExists = exists

			target, err := o.router.CurrentTarget(callCtx, d)
			if err != nil {
				return fmt.Errorf("verify route for %s: %w", d, err)
			}
			st.Target = target
			v.Domains[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	states, err := o.compute.States(callCtx, o.table.ServiceNames())
	if err != nil {
		return nil, fmt.Errorf("verify services: %w", err)
	}
	v.Services = states
	v.Fleet = fleetState(states)
	return v, nil
}

func (o *Orchestrator) bucketHealthy(ctx context.Context) error {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	return o.storage.Healthy(callCtx)
}

func fleetState(states []compute.ServiceState) FleetState {
	running, stopped := true, true
	for _, s := range states {
		running = running && s.Running()
		stopped = stopped && s.Stopped()
	}
	switch {
	case stopped:
		return FleetStopped
	case running:
		return FleetRunning
	default:
		return FleetTransitioning
	}
}
