// Package compute queries and scales the container services holiday mode
// stops and starts. The cluster a service runs in is derived from its name;
// no cluster registry is consulted.
package compute

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"holiday/logger"
)

// ErrServiceNotFound is returned by a Backend when the service (or its
// cluster) does not exist.
var ErrServiceNotFound = errors.New("service not found")

// Counts are a service's task counts as reported by the orchestrator.
type Counts struct {
	Desired int
	Running int
	Pending int
}

// Backend talks to one container orchestrator.
type Backend interface {
	Counts(ctx context.Context, cluster, service string) (Counts, error)
	SetDesired(ctx context.Context, cluster, service string, count int) error
}

// ClusterFor derives the cluster name: an optional "-service" suffix is
// replaced by "-cluster", bare names get "-cluster" appended.
func ClusterFor(service string) string {
	return strings.TrimSuffix(service, "-service") + "-cluster"
}

type Adapter struct {
	backend     Backend
	log         logger.Logger
	concurrency int
}

func New(backend Backend, log logger.Logger, concurrency int) *Adapter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Adapter{backend: backend, log: log, concurrency: concurrency}
}

// ServiceState is one service's counts; Exists is false when the
// orchestrator has never heard of it.
type ServiceState struct {
	Service string
	Cluster string
	Exists  bool
	Counts
}

// Running requires a nonzero desired count fully satisfied.
func (s ServiceState) Running() bool {
	return s.Exists && s.Desired > 0 && s.Counts.Running == s.Desired
}

// Stopped treats a missing service as stopped.
func (s ServiceState) Stopped() bool {
	return !s.Exists || s.Desired == 0
}

// State fetches one service's counts.
func (a *Adapter) State(ctx context.Context, service string) (ServiceState, error) {
	cluster := ClusterFor(service)
	st := ServiceState{Service: service, Cluster: cluster}
	counts, err := a.backend.Counts(ctx, cluster, service)
	if errors.Is(err, ErrServiceNotFound) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("describe %s in %s: %w", service, cluster, err)
	}
	st.Exists = true
	st.Counts = counts
	return st, nil
}

// States fetches every service concurrently, in input order.
func (a *Adapter) States(ctx context.Context, services []string) ([]ServiceState, error) {
	states := make([]ServiceState, len(services))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, svc := range services {
		g.Go(func() error {
			st, err := a.State(ctx, svc)
			states[i] = st
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

// AreServicesRunning reports whether every service has a nonzero desired
// count that is fully running. An empty set is not running.
func (a *Adapter) AreServicesRunning(ctx context.Context, services []string) (bool, error) {
	if len(services) == 0 {
		return false, nil
	}
	states, err := a.States(ctx, services)
	if err != nil {
		return false, err
	}
	for _, st := range states {
		if !st.Running() {
			return false, nil
		}
	}
	return true, nil
}

// AreServicesStopped reports whether every service has a zero desired count.
// Services that don't exist count as stopped.
func (a *Adapter) AreServicesStopped(ctx context.Context, services []string) (bool, error) {
	states, err := a.States(ctx, services)
	if err != nil {
		return false, err
	}
	for _, st := range states {
		if !st.Stopped() {
			return false, nil
		}
	}
	return true, nil
}

// EnsureScale sets the desired count unless it already matches. Stopping a
// missing service is a no-op; starting one is an error.
func (a *Adapter) EnsureScale(ctx context.Context, service string, count int) (bool, error) {
	st, err := a.State(ctx, service)
	if err != nil {
		return false, err
	}
	if !st.Exists {
		if count == 0 {
			a.log.Debug("service absent, treating as stopped", logger.String("service", service))
			return false, nil
		}
		return false, fmt.Errorf("start %s in %s: %w", service, st.Cluster, ErrServiceNotFound)
	}
	if st.Desired == count {
		a.log.Debug("service already at desired count", logger.String("service", service), logger.Int("count", count))
		return false, nil
	}

	if err := a.backend.SetDesired(ctx, st.Cluster, service, count); err != nil {
		if errors.Is(err, ErrServiceNotFound) && count == 0 {
			return false, nil
		}
		return false, fmt.Errorf("scale %s in %s to %d: %w", service, st.Cluster, count, err)
	}
	a.log.Info("scaled service",
		logger.String("service", service),
		logger.String("cluster", st.Cluster),
		logger.Int("from", st.Desired),
		logger.Int("to", count))
	return true, nil
}

// ScaleTo is EnsureScale without the change report.
func (a *Adapter) ScaleTo(ctx context.Context, service string, count int) error {
	_, err := a.EnsureScale(ctx, service, count)
	return err
}
