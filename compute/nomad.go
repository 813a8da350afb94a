package compute

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	nomadapi "github.com/hashicorp/nomad/api"
)

// NomadJobs is the part of the Nomad jobs endpoint the backend uses.
type NomadJobs interface {
	Info(jobID string, q *nomadapi.QueryOptions) (*nomadapi.Job, *nomadapi.QueryMeta, error)
	Summary(jobID string, q *nomadapi.QueryOptions) (*nomadapi.JobSummary, *nomadapi.QueryMeta, error)
	Scale(jobID, group string, count *int, message string, isError bool, meta map[string]interface{}, q *nomadapi.WriteOptions) (*nomadapi.JobRegisterResponse, *nomadapi.WriteMeta, error)
	Register(job *nomadapi.Job, q *nomadapi.WriteOptions) (*nomadapi.JobRegisterResponse, *nomadapi.WriteMeta, error)
}

// Nomad runs each managed service as a job of the same name. Nomad has no
// clusters in the ECS sense, so the derived cluster name only shows up in
// logs and errors.
type Nomad struct {
	jobs      NomadJobs
	namespace string
}

func NewNomadClient(addr, namespace string, transport http.RoundTripper) (*Nomad, error) {
	cfg := nomadapi.DefaultConfig()
	cfg.Address = addr
	cfg.Namespace = namespace
	if transport != nil {
		cfg.HttpClient = &http.Client{Transport: transport}
	}

	client, err := nomadapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("nomad client: %w", err)
	}
	return NewNomad(client.Jobs(), namespace), nil
}

func NewNomad(jobs NomadJobs, namespace string) *Nomad {
	return &Nomad{jobs: jobs, namespace: namespace}
}

func (n *Nomad) Counts(ctx context.Context, _, service string) (Counts, error) {
	q := (&nomadapi.QueryOptions{Namespace: n.namespace}).WithContext(ctx)

	job, _, err := n.jobs.Info(service, q)
	if err != nil {
		return Counts{}, nomadNotFound(err)
	}
	group, err := taskGroup(job, service)
	if err != nil {
		return Counts{}, err
	}

	var c Counts
	if group.Count != nil && (job.Stop == nil || !*job.Stop) {
		c.Desired = *group.Count
	}

	summary, _, err := n.jobs.Summary(service, q)
	if err != nil {
		return Counts{}, nomadNotFound(err)
	}
	if s, ok := summary.Summary[*group.Name]; ok {
		c.Running = s.Running
		c.Pending = s.Queued + s.Starting
	}
	return c, nil
}

func (n *Nomad) SetDesired(ctx context.Context, _, service string, count int) error {
	q := (&nomadapi.QueryOptions{Namespace: n.namespace}).WithContext(ctx)
	job, _, err := n.jobs.Info(service, q)
	if err != nil {
		return nomadNotFound(err)
	}
	group, err := taskGroup(job, service)
	if err != nil {
		return err
	}

	w := (&nomadapi.WriteOptions{Namespace: n.namespace}).WithContext(ctx)

	// Scale leaves a stopped job stopped; starting one means registering it
	// again with Stop cleared.
	if job.Stop != nil && *job.Stop {
		if count == 0 {
			return nil
		}
		stop := false
		job.Stop = &stop
		group.Count = &count
		_, _, err = n.jobs.Register(job, w)
		return nomadNotFound(err)
	}

	_, _, err = n.jobs.Scale(service, *group.Name, &count, "scaled by holiday", false, nil, w)
	return nomadNotFound(err)
}

// taskGroup picks the group named after the service, or the job's only group.
func taskGroup(job *nomadapi.Job, service string) (*nomadapi.TaskGroup, error) {
	for _, tg := range job.TaskGroups {
		if tg.Name != nil && *tg.Name == service {
			return tg, nil
		}
	}
	if len(job.TaskGroups) == 1 && job.TaskGroups[0].Name != nil {
		return job.TaskGroups[0], nil
	}
	return nil, fmt.Errorf("job %s: cannot pick a task group among %d", service, len(job.TaskGroups))
}

func nomadNotFound(err error) error {
	if err == nil {
		return nil
	}
	var resp interface{ StatusCode() int }
	if errors.As(err, &resp) && resp.StatusCode() == http.StatusNotFound {
		return errors.Join(ErrServiceNotFound, err)
	}
	if strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "job not found") {
		return errors.Join(ErrServiceNotFound, err)
	}
	return err
}
