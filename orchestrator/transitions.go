package orchestrator

import (
	"context"
	"fmt"

	"holiday/holiday"
	"holiday/logger"
	"holiday/routing"
)

const (
	StepCheckState           = "check-state"
	StepUploadPlaceholder    = "upload-placeholder"
	StepEnableStaticHosting  = "enable-static-hosting"
	StepRouteStorage         = "route-storage"
	StepScaleDown            = "scale-down"
	StepScaleUp              = "scale-up"
	StepRouteCompute         = "route-compute"
	StepDisableStaticHosting = "disable-static-hosting"
)

// StepNames lists the steps of a transition to mode in execution order.
func StepNames(mode holiday.Mode) []string {
	if mode == holiday.Vacation {
		return []string{StepUploadPlaceholder, StepEnableStaticHosting, StepRouteStorage, StepScaleDown}
	}
	return []string{StepScaleUp, StepRouteCompute, StepDisableStaticHosting}
}

// EnterVacation serves placeholder pages and stops compute:
//
//	upload-placeholder    one page per active domain
//	enable-static-hosting
//	route-storage         every active domain's rule to storage
//	scale-down            every managed service to 0
//
// Traffic leaves compute before compute is stopped.
func (o *Orchestrator) EnterVacation(ctx context.Context) (*Report, error) {
	t := o.begin(holiday.Vacation)
	t.log.Info("entering vacation mode", logger.Int("domains", len(o.table.Domains())))

	done, err := t.alreadyIn(ctx, o.compute.AreServicesStopped)
	if err != nil || done {
		return t.finish(err)
	}

	steps := []step{
		{name: StepUploadPlaceholder, ops: o.perDomain(o.uploadPlaceholder)},
		{name: StepEnableStaticHosting, ops: []operation{{
			resource: o.storage.Bucket(),
			run: func(ctx context.Context) (bool, error) {
				return o.storage.EnsureStaticHosting(ctx, true)
			},
		}}},
		{name: StepRouteStorage, ops: o.perDomain(o.routeTo(routing.TargetStorage))},
		{name: StepScaleDown, ops: o.perService(func(holiday.Service) int { return 0 })},
	}
	return t.finish(t.run(ctx, steps))
}

// EnterWork restarts compute and takes traffic back from storage:
//
//	scale-up               every managed service to its steady-state count
//	route-compute          every active domain's rule to its target group
//	disable-static-hosting non-fatal
//
// Compute is started before any traffic is pointed at it.
func (o *Orchestrator) EnterWork(ctx context.Context) (*Report, error) {
	t := o.begin(holiday.Work)
	t.log.Info("entering work mode", logger.Int("services", len(o.table.ServiceNames())))

	done, err := t.alreadyIn(ctx, o.compute.AreServicesRunning)
	if err != nil || done {
		return t.finish(err)
	}

	steps := []step{
		{name: StepScaleUp, ops: o.perService(func(s holiday.Service) int { return s.Count })},
		{name: StepRouteCompute, ops: o.perDomain(o.routeTo(routing.TargetCompute))},
		{name: StepDisableStaticHosting, nonFatal: true, ops: []operation{{
			resource: o.storage.Bucket(),
			run: func(ctx context.Context) (bool, error) {
				return o.storage.EnsureStaticHosting(ctx, false)
			},
		}}},
	}
	return t.finish(t.run(ctx, steps))
}

func (o *Orchestrator) perDomain(fn func(domain string) func(context.Context) (bool, error)) []operation {
	domains := o.table.Domains()
	ops := make([]operation, len(domains))
	for i, d := range domains {
		ops[i] = operation{resource: d, run: fn(d)}
	}
	return ops
}

func (o *Orchestrator) perService(count func(holiday.Service) int) []operation {
	services := o.table.Services()
	ops := make([]operation, len(services))
	for i, svc := range services {
		n := count(svc)
		ops[i] = operation{
			resource: svc.Name,
			run: func(ctx context.Context) (bool, error) {
				return o.compute.EnsureScale(ctx, svc.Name, n)
			},
		}
	}
	return ops
}

func (o *Orchestrator) uploadPlaceholder(domain string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		html, err := o.pages.Render(domain)
		if err != nil {
			return false, err
		}
		if err := o.storage.Upload(ctx, domain, html); err != nil {
			return false, err
		}
		return true, nil
	}
}

func (o *Orchestrator) routeTo(target routing.Target) func(string) func(context.Context) (bool, error) {
	return func(domain string) func(context.Context) (bool, error) {
		return func(ctx context.Context) (bool, error) {
			if p := o.router.PriorityFor(domain); p == holiday.DefaultPriority {
				return false, fmt.Errorf("no listener priority for %s", domain)
			}
			return o.router.EnsureRoute(ctx, domain, target)
		}
	}
}
