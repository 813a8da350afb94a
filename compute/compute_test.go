package compute

import (
	"context"
	"errors"
	"sync"
	"testing"

	"holiday/logger"
)

type fakeBackend struct {
	mu       sync.Mutex
	services map[string]Counts
	sets     []string
	setErr   error
}

func (f *fakeBackend) Counts(_ context.Context, cluster, service string) (Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.services[cluster+"/"+service]
	if !ok {
		return Counts{}, ErrServiceNotFound
	}
	return c, nil
}

func (f *fakeBackend) SetDesired(_ context.Context, cluster, service string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.sets = append(f.sets, service)
	c := f.services[cluster+"/"+service]
	c.Desired = count
	f.services[cluster+"/"+service] = c
	return nil
}

func TestClusterFor(t *testing.T) {
	tests := []struct {
		service string
		want    string
	}{
		{"bazaar", "bazaar-cluster"},
		{"bazaar-service", "bazaar-cluster"},
		{"neon-web-service", "neon-web-cluster"},
		{"service", "service-cluster"},
		{"", "-cluster"},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			got := ClusterFor(tt.service)
			if got != tt.want {
				t.Errorf("ClusterFor(%q) = %q, want %q", tt.service, got, tt.want)
			}
			if again := ClusterFor(tt.service); again != got {
				t.Errorf("ClusterFor not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestPredicatesWithNoServices(t *testing.T) {
	a := New(&fakeBackend{services: map[string]Counts{}}, logger.Nop(), 2)
	ctx := context.Background()
	set := []string{"bazaar", "neon-web-service"}

	stopped, err := a.AreServicesStopped(ctx, set)
	if err != nil || !stopped {
		t.Errorf("AreServicesStopped = %v, %v; want true", stopped, err)
	}
	running, err := a.AreServicesRunning(ctx, set)
	if err != nil || running {
		t.Errorf("AreServicesRunning = %v, %v; want false", running, err)
	}
}

func TestPredicatesWithEmptySet(t *testing.T) {
	b := &fakeBackend{services: map[string]Counts{"bazaar-cluster/bazaar": {Desired: 1, Running: 1}}}
	a := New(b, logger.Nop(), 2)
	ctx := context.Background()

	running, err := a.AreServicesRunning(ctx, nil)
	if err != nil || running {
		t.Errorf("AreServicesRunning(empty) = %v, %v; want false", running, err)
	}
	stopped, err := a.AreServicesStopped(ctx, []string{})
	if err != nil || !stopped {
		t.Errorf("AreServicesStopped(empty) = %v, %v; want true", stopped, err)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name        string
		counts      Counts
		wantRunning bool
		wantStopped bool
	}{
		{"steady", Counts{Desired: 2, Running: 2}, true, false},
		{"starting", Counts{Desired: 2, Running: 1, Pending: 1}, false, false},
		{"draining", Counts{Desired: 0, Running: 1}, false, true},
		{"stopped", Counts{Desired: 0, Running: 0}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{services: map[string]Counts{"bazaar-cluster/bazaar": tt.counts}}
			a := New(b, logger.Nop(), 1)
			ctx := context.Background()

			running, err := a.AreServicesRunning(ctx, []string{"bazaar"})
			if err != nil || running != tt.wantRunning {
				t.Errorf("AreServicesRunning = %v, %v; want %v", running, err, tt.wantRunning)
			}
			stopped, err := a.AreServicesStopped(ctx, []string{"bazaar"})
			if err != nil || stopped != tt.wantStopped {
				t.Errorf("AreServicesStopped = %v, %v; want %v", stopped, err, tt.wantStopped)
			}
		})
	}
}

func TestEnsureScale(t *testing.T) {
	b := &fakeBackend{services: map[string]Counts{"bazaar-cluster/bazaar": {Desired: 1, Running: 1}}}
	a := New(b, logger.Nop(), 1)
	ctx := context.Background()

	changed, err := a.EnsureScale(ctx, "bazaar", 1)
	if err != nil || changed {
		t.Fatalf("EnsureScale(1) = %v, %v; want no-op", changed, err)
	}
	changed, err = a.EnsureScale(ctx, "bazaar", 0)
	if err != nil || !changed {
		t.Fatalf("EnsureScale(0) = %v, %v; want change", changed, err)
	}
	if err := a.ScaleTo(ctx, "bazaar", 0); err != nil {
		t.Fatalf("ScaleTo(0): %v", err)
	}
	if len(b.sets) != 1 {
		t.Errorf("SetDesired called %d times, want 1", len(b.sets))
	}
}

func TestEnsureScaleMissingService(t *testing.T) {
	a := New(&fakeBackend{services: map[string]Counts{}}, logger.Nop(), 1)
	ctx := context.Background()

	changed, err := a.EnsureScale(ctx, "bazaar", 0)
	if err != nil || changed {
		t.Errorf("stopping a missing service = %v, %v; want no-op", changed, err)
	}
	_, err = a.EnsureScale(ctx, "bazaar", 1)
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("starting a missing service error = %v, want ErrServiceNotFound", err)
	}
}

func TestStateErrorsPropagate(t *testing.T) {
	boom := errors.New("throttled")
	a := New(errBackend{boom}, logger.Nop(), 1)
	_, err := a.AreServicesStopped(context.Background(), []string{"bazaar"})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

type errBackend struct{ err error }

func (e errBackend) Counts(context.Context, string, string) (Counts, error) { return Counts{}, e.err }
func (e errBackend) SetDesired(context.Context, string, string, int) error  { return e.err }
