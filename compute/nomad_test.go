package compute

import (
	"context"
	"errors"
	"testing"

	nomadapi "github.com/hashicorp/nomad/api"
)

type fakeNomadJobs struct {
	jobs    map[string]*nomadapi.Job
	running map[string]int
	scaled  map[string]int
	// registered holds jobs submitted through Register.
	registered []*nomadapi.Job
}

func (f *fakeNomadJobs) Info(jobID string, _ *nomadapi.QueryOptions) (*nomadapi.Job, *nomadapi.QueryMeta, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, nil, errors.New("Unexpected response code: 404 (job not found)")
	}
	return job, nil, nil
}

func (f *fakeNomadJobs) Summary(jobID string, _ *nomadapi.QueryOptions) (*nomadapi.JobSummary, *nomadapi.QueryMeta, error) {
	job := f.jobs[jobID]
	summary := &nomadapi.JobSummary{JobID: jobID, Summary: map[string]nomadapi.TaskGroupSummary{}}
	for _, tg := range job.TaskGroups {
		summary.Summary[*tg.Name] = nomadapi.TaskGroupSummary{Running: f.running[*tg.Name]}
	}
	return summary, nil, nil
}

func (f *fakeNomadJobs) Scale(jobID, group string, count *int, _ string, _ bool, _ map[string]interface{}, _ *nomadapi.WriteOptions) (*nomadapi.JobRegisterResponse, *nomadapi.WriteMeta, error) {
	if f.scaled == nil {
		f.scaled = map[string]int{}
	}
	f.scaled[jobID+"/"+group] = *count
	return &nomadapi.JobRegisterResponse{}, nil, nil
}

func (f *fakeNomadJobs) Register(job *nomadapi.Job, _ *nomadapi.WriteOptions) (*nomadapi.JobRegisterResponse, *nomadapi.WriteMeta, error) {
	f.registered = append(f.registered, job)
	f.jobs[*job.ID] = job
	return &nomadapi.JobRegisterResponse{}, nil, nil
}

func jobWithGroups(id string, counts map[string]int) *nomadapi.Job {
	job := nomadapi.NewServiceJob(id, id, "global", 50)
	for name, n := range counts {
		job.AddTaskGroup(nomadapi.NewTaskGroup(name, n))
	}
	return job
}

func TestNomadCountsAndScale(t *testing.T) {
	f := &fakeNomadJobs{
		jobs:    map[string]*nomadapi.Job{"bazaar": jobWithGroups("bazaar", map[string]int{"web": 2})},
		running: map[string]int{"web": 2},
	}
	n := NewNomad(f, "default")
	ctx := context.Background()

	c, err := n.Counts(ctx, "bazaar-cluster", "bazaar")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if c.Desired != 2 || c.Running != 2 {
		t.Errorf("Counts = %+v", c)
	}

	if err := n.SetDesired(ctx, "bazaar-cluster", "bazaar", 0); err != nil {
		t.Fatalf("SetDesired: %v", err)
	}
	if got, ok := f.scaled["bazaar/web"]; !ok || got != 0 {
		t.Errorf("scaled = %v, want bazaar/web at 0", f.scaled)
	}
}

func TestNomadMissingJob(t *testing.T) {
	n := NewNomad(&fakeNomadJobs{jobs: map[string]*nomadapi.Job{}}, "default")
	_, err := n.Counts(context.Background(), "bazaar-cluster", "bazaar")
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Counts(missing) = %v, want ErrServiceNotFound", err)
	}
}

func TestTaskGroupSelection(t *testing.T) {
	named := jobWithGroups("bazaar", map[string]int{"bazaar": 1, "worker": 1})
	tg, err := taskGroup(named, "bazaar")
	if err != nil || *tg.Name != "bazaar" {
		t.Errorf("taskGroup(named) = %v, %v", tg, err)
	}

	ambiguous := jobWithGroups("bazaar", map[string]int{"web": 1, "worker": 1})
	if _, err := taskGroup(ambiguous, "bazaar"); err == nil {
		t.Error("expected error for ambiguous groups")
	}
}

func TestNomadStartsStoppedJob(t *testing.T) {
	job := jobWithGroups("bazaar", map[string]int{"web": 1})
	stopped := true
	job.Stop = &stopped
	f := &fakeNomadJobs{jobs: map[string]*nomadapi.Job{"bazaar": job}}
	n := NewNomad(f, "default")
	ctx := context.Background()

	c, err := n.Counts(ctx, "bazaar-cluster", "bazaar")
	if err != nil || c.Desired != 0 {
		t.Fatalf("Counts(stopped) = %+v, %v; want desired 0", c, err)
	}

	if err := n.SetDesired(ctx, "bazaar-cluster", "bazaar", 2); err != nil {
		t.Fatalf("SetDesired: %v", err)
	}
	if len(f.scaled) != 0 {
		t.Errorf("Scale called on a stopped job: %v", f.scaled)
	}
	if len(f.registered) != 1 {
		t.Fatalf("Register called %d times, want 1", len(f.registered))
	}
	got := f.registered[0]
	if got.Stop == nil || *got.Stop {
		t.Error("re-registered job is still stopped")
	}
	if *got.TaskGroups[0].Count != 2 {
		t.Errorf("group count = %d, want 2", *got.TaskGroups[0].Count)
	}

	c, err = n.Counts(ctx, "bazaar-cluster", "bazaar")
	if err != nil || c.Desired != 2 {
		t.Errorf("Counts after start = %+v, %v; want desired 2", c, err)
	}
}
