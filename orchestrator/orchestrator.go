// Package orchestrator flips the fleet between vacation and work mode by
// driving the storage, compute and routing adapters through an ordered list
// of steps.
//
// Steps run top to bottom. Operations inside one step touch distinct
// resources and run concurrently; the next step starts only after every
// operation of the current one has returned. The first failure stops the
// transition and nothing already done is undone.
package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"holiday/compute"
	"holiday/holiday"
	"holiday/logger"
	"holiday/routing"
	"holiday/saga"
)

type Storage interface {
	Bucket() string
	KeyFor(domain string) string
	Upload(ctx context.Context, domain, html string) error
	ObjectExists(ctx context.Context, domain string) (bool, error)
	EnsureStaticHosting(ctx context.Context, enabled bool) (bool, error)
	Healthy(ctx context.Context) error
}

type Compute interface {
	States(ctx context.Context, services []string) ([]compute.ServiceState, error)
	AreServicesRunning(ctx context.Context, services []string) (bool, error)
	AreServicesStopped(ctx context.Context, services []string) (bool, error)
	EnsureScale(ctx context.Context, service string, count int) (bool, error)
}

type Router interface {
	PriorityFor(domain string) int
	EnsureRoute(ctx context.Context, domain string, target routing.Target) (bool, error)
	CurrentTarget(ctx context.Context, domain string) (routing.Target, error)
}

type Generator interface {
	Render(domain string) (string, error)
}

type Config struct {
	Table   *holiday.Table
	Storage Storage
	Compute Compute
	Router  Router
	Pages   Generator
	Journal saga.Store
	Log     logger.Logger

	// Concurrency bounds the operations in flight within one step.
	Concurrency int
	// CallTimeout bounds each adapter call. Zero means no timeout.
	CallTimeout time.Duration
}

type Orchestrator struct {
	table       *holiday.Table
	storage     Storage
	compute     Compute
	router      Router
	pages       Generator
	journal     saga.Store
	log         logger.Logger
	concurrency int
	callTimeout time.Duration
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		table:       cfg.Table,
		storage:     cfg.Storage,
		compute:     cfg.Compute,
		router:      cfg.Router,
		pages:       cfg.Pages,
		journal:     cfg.Journal,
		log:         cfg.Log,
		concurrency: cfg.Concurrency,
		callTimeout: cfg.CallTimeout,
	}
	if o.journal == nil {
		o.journal = saga.NewMemoryStore()
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// Enter drives the fleet to mode.
func (o *Orchestrator) Enter(ctx context.Context, mode holiday.Mode) (*Report, error) {
	if mode == holiday.Vacation {
		return o.EnterVacation(ctx)
	}
	return o.EnterWork(ctx)
}

// operation is one adapter call on one resource. It reports whether it
// changed anything.
type operation struct {
	resource string
	run      func(ctx context.Context) (bool, error)
}

type step struct {
	name     string
	ops      []operation
	nonFatal bool
}

type transition struct {
	o      *Orchestrator
	sg     *saga.Saga
	report *Report
	log    logger.Logger
}

func (o *Orchestrator) begin(mode holiday.Mode) *transition {
	sg := saga.New(o.journal, mode.String())
	return &transition{
		o:      o,
		sg:     sg,
		report: &Report{SagaID: sg.ID, Mode: mode},
		log:    o.log.With(logger.String("mode", mode.String()), logger.String("saga", sg.ID)),
	}
}

// callContext detaches from ctx's cancellation: once issued, a cloud call
// is allowed to finish even if the process is asked to stop.
func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if o.callTimeout > 0 {
		return context.WithTimeout(detached, o.callTimeout)
	}
	return context.WithCancel(detached)
}

// run executes steps in order, stopping at the first failed step or at a
// step boundary after ctx is cancelled.
func (t *transition) run(ctx context.Context, steps []step) error {
	for _, s := range steps {
		if ctx.Err() != nil {
			t.report.Interrupted = true
			t.sg.StepFailed(context.WithoutCancel(ctx), s.name, "", ErrInterrupted)
			t.log.Warn("transition interrupted before step", logger.String("step", s.name))
			return &StepError{Step: s.name, Err: ErrInterrupted}
		}
		if err := t.runStep(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (t *transition) runStep(ctx context.Context, s step) error {
	results := make([]StepResult, len(s.ops))
	journal := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(t.o.concurrency)
	for i, op := range s.ops {
		g.Go(func() error {
			t.sg.StepStart(journal, s.name, op.resource)
			callCtx, cancel := t.o.callContext(ctx)
			defer cancel()

			start := time.Now()
			changed, err := op.run(callCtx)
			res := StepResult{Step: s.name, Resource: op.resource, Duration: time.Since(start)}

			switch {
			case err != nil && s.nonFatal:
				res.Status, res.Err = StatusIgnored, err
				t.sg.StepIgnored(journal, s.name, op.resource, err)
				t.log.Warn("non-fatal step failed", logger.String("step", s.name), logger.String("resource", op.resource), logger.Error(err))
			case err != nil:
				res.Status, res.Err = StatusFailed, err
				t.sg.StepFailed(journal, s.name, op.resource, err)
				t.log.Error("step failed", logger.String("step", s.name), logger.String("resource", op.resource), logger.Error(err))
			case changed:
				res.Status = StatusPerformed
				t.sg.StepComplete(journal, s.name, op.resource, res.Duration, nil)
			default:
				res.Status = StatusSkipped
				t.sg.StepSkipped(journal, s.name, op.resource, "already in target state")
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	t.report.Steps = append(t.report.Steps, results...)
	for _, r := range results {
		if r.Status == StatusFailed {
			return &StepError{Step: r.Step, Resource: r.Resource, Err: r.Err}
		}
	}
	return nil
}

// alreadyIn runs the idempotency check. A true result ends the transition
// without any mutating call.
func (t *transition) alreadyIn(ctx context.Context, check func(context.Context, []string) (bool, error)) (bool, error) {
	services := t.o.table.ServiceNames()
	callCtx, cancel := t.o.callContext(ctx)
	defer cancel()

	done, err := check(callCtx, services)
	if err != nil {
		t.sg.StepFailed(context.WithoutCancel(ctx), StepCheckState, "", err)
		return false, &StepError{Step: StepCheckState, Resource: "services", Err: err}
	}
	if done {
		t.report.AlreadyInState = true
		t.sg.StepSkipped(context.WithoutCancel(ctx), StepCheckState, "", t.report.Summary())
		t.log.Info(t.report.Summary())
	}
	return done, nil
}

func (t *transition) finish(err error) (*Report, error) {
	if err != nil {
		t.log.Error("transition stopped", logger.String("last_step", t.report.LastStep()), logger.Error(err))
		return t.report, err
	}
	t.log.Info("transition complete", logger.String("summary", t.report.Summary()))
	return t.report, nil
}
