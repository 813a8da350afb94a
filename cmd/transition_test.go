package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"holiday/compute"
	"holiday/holiday"
	"holiday/logger"
	"holiday/orchestrator"
	"holiday/placeholder"
	"holiday/routing"
	"holiday/saga"
	"holiday/storage"
)

type stubStorage struct{ hosting bool }

func (s *stubStorage) Bucket() string                                     { return "sagebrush-public" }
func (s *stubStorage) KeyFor(domain string) string                        { return storage.KeyFor(domain) }
func (s *stubStorage) Upload(context.Context, string, string) error       { return nil }
func (s *stubStorage) ObjectExists(context.Context, string) (bool, error) { return true, nil }
func (s *stubStorage) Healthy(context.Context) error                      { return nil }
func (s *stubStorage) EnsureStaticHosting(_ context.Context, on bool) (bool, error) {
	changed := s.hosting != on
	s.hosting = on
	return changed, nil
}

type stubBackend map[string]compute.Counts

func (b stubBackend) Counts(_ context.Context, _, service string) (compute.Counts, error) {
	c, ok := b[service]
	if !ok {
		return compute.Counts{}, compute.ErrServiceNotFound
	}
	return c, nil
}

func (b stubBackend) SetDesired(_ context.Context, _, service string, count int) error {
	b[service] = compute.Counts{Desired: count, Running: count}
	return nil
}

type stubRouter struct{ table *holiday.Table }

func (r stubRouter) PriorityFor(domain string) int { return r.table.PriorityFor(domain) }
func (r stubRouter) EnsureRoute(context.Context, string, routing.Target) (bool, error) {
	return true, nil
}
func (r stubRouter) CurrentTarget(context.Context, string) (routing.Target, error) {
	return routing.TargetStorage, nil
}

// useEnv makes commands run against services instead of the cloud.
func useEnv(t *testing.T, services stubBackend) {
	t.Helper()
	table, err := holiday.Default()
	if err != nil {
		t.Fatal(err)
	}
	journal := saga.NewMemoryStore()
	e := &env{
		log:       logger.Nop(),
		table:     table,
		transport: &http.Transport{},
		journal:   journal,
		orch: orchestrator.New(orchestrator.Config{
			Table:   table,
			Storage: &stubStorage{},
			Compute: compute.New(services, logger.Nop(), 1),
			Router:  stubRouter{table: table},
			Pages:   placeholder.New(""),
			Journal: journal,
		}),
	}

	prev := newEnv
	newEnv = func(context.Context, bool) (*env, error) { return e, nil }
	t.Cleanup(func() { newEnv = prev })
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err = Execute()
	return out.String(), errOut.String(), err
}

func TestVacationWhenAlreadyStopped(t *testing.T) {
	useEnv(t, stubBackend{"bazaar": {Desired: 0}})

	stdout, _, err := execute(t, "vacation", "--plain")
	if err != nil {
		t.Fatalf("vacation: %v", err)
	}
	if !strings.Contains(stdout, "already on vacation") {
		t.Errorf("stdout = %q, want the already-on-vacation confirmation", stdout)
	}
}

func TestVacationReportsChanges(t *testing.T) {
	useEnv(t, stubBackend{"bazaar": {Desired: 1, Running: 1}})

	stdout, _, err := execute(t, "vacation", "--plain")
	if err != nil {
		t.Fatalf("vacation: %v", err)
	}
	if !strings.Contains(stdout, "on vacation (") {
		t.Errorf("stdout = %q, want a change summary", stdout)
	}
	if !strings.Contains(stdout, "scale-down bazaar completed") {
		t.Errorf("stdout = %q, want the scale-down step event", stdout)
	}
}

func TestWorkFailureNamesStepAndService(t *testing.T) {
	useEnv(t, stubBackend{})

	_, stderr, err := execute(t, "work", "--plain")
	if err == nil {
		t.Fatal("work succeeded with no deployed services")
	}
	var stepErr *orchestrator.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "scale-up" || stepErr.Resource != "bazaar" {
		t.Errorf("error = %v, want a scale-up bazaar StepError", err)
	}
	if !strings.Contains(stderr, "scale-up bazaar") {
		t.Errorf("stderr = %q, want the failing step and service", stderr)
	}
}
