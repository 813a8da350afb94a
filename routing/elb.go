// Package routing points each active domain's load-balancer listener rule at
// either the placeholder storage origin or the domain's compute target group.
package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"holiday/holiday"
	"holiday/logger"
	"holiday/storage"
)

var (
	// ErrPriorityCollision means the rule at a domain's priority routes a
	// different host.
	ErrPriorityCollision = errors.New("listener priority owned by another host")
	ErrNoTargetGroup     = errors.New("target group not found")
)

type Target int

const (
	TargetNone Target = iota
	TargetStorage
	TargetCompute
	TargetOther
)

func (t Target) String() string {
	switch t {
	case TargetNone:
		return "none"
	case TargetStorage:
		return "storage"
	case TargetCompute:
		return "compute"
	default:
		return "other"
	}
}

// ELBAPI is the part of the elasticloadbalancingv2 client the router uses.
type ELBAPI interface {
	DescribeRules(ctx context.Context, in *elbv2.DescribeRulesInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeRulesOutput, error)
	CreateRule(ctx context.Context, in *elbv2.CreateRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.CreateRuleOutput, error)
	ModifyRule(ctx context.Context, in *elbv2.ModifyRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.ModifyRuleOutput, error)
	DescribeTargetGroups(ctx context.Context, in *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error)
}

// StorageOrigin says how vacation traffic reaches the bucket: forwarded to
// a target group when TargetGroupARN is set, otherwise redirected to the
// bucket's website host.
type StorageOrigin struct {
	TargetGroupARN string
	WebsiteHost    string
}

type Router struct {
	api      ELBAPI
	listener string
	table    *holiday.Table
	origin   StorageOrigin
	log      logger.Logger
}

func New(api ELBAPI, listenerARN string, table *holiday.Table, origin StorageOrigin, log logger.Logger) *Router {
	return &Router{api: api, listener: listenerARN, table: table, origin: origin, log: log}
}

// PriorityFor is the rule priority for domain; DefaultPriority when the
// domain is not active.
func (r *Router) PriorityFor(domain string) int {
	return r.table.PriorityFor(domain)
}

// EnsureRoute makes the rule at the domain's priority forward to target,
// creating the rule if absent. Returns true if anything changed.
func (r *Router) EnsureRoute(ctx context.Context, domain string, target Target) (bool, error) {
	if !r.table.IsActive(domain) {
		return false, fmt.Errorf("route %s: domain is not active", domain)
	}
	priority := r.table.PriorityFor(domain)

	actions, err := r.actions(ctx, domain, target)
	if err != nil {
		return false, err
	}

	rule, err := r.ruleAt(ctx, priority)
	if err != nil {
		return false, err
	}

	if rule == nil {
		_, err := r.api.CreateRule(ctx, &elbv2.CreateRuleInput{
			ListenerArn: aws.String(r.listener),
			Priority:    aws.Int32(int32(priority)),
			Conditions:  hostCondition(domain),
			Actions:     actions,
		})
		if err != nil {
			return false, fmt.Errorf("create rule %d for %s: %w", priority, domain, err)
		}
		r.log.Info("created listener rule", logger.String("domain", domain), logger.Int("priority", priority), logger.String("target", target.String()))
		return true, nil
	}

	if hosts := ruleHosts(rule); len(hosts) > 0 && !slices.Contains(hosts, domain) {
		return false, fmt.Errorf("rule %d for %s routes %s: %w", priority, domain, strings.Join(hosts, ","), ErrPriorityCollision)
	}
	if sameActions(rule.Actions, actions) {
		r.log.Debug("listener rule already routed", logger.String("domain", domain), logger.Int("priority", priority), logger.String("target", target.String()))
		return false, nil
	}

	_, err = r.api.ModifyRule(ctx, &elbv2.ModifyRuleInput{
		RuleArn:    rule.RuleArn,
		Conditions: hostCondition(domain),
		Actions:    actions,
	})
	if err != nil {
		return false, fmt.Errorf("modify rule %d for %s: %w", priority, domain, err)
	}
	r.log.Info("modified listener rule", logger.String("domain", domain), logger.Int("priority", priority), logger.String("target", target.String()))
	return true, nil
}

// RouteTo is EnsureRoute without the change report.
func (r *Router) RouteTo(ctx context.Context, domain string, target Target) error {
	_, err := r.EnsureRoute(ctx, domain, target)
	return err
}

// CurrentTarget reads where the domain's rule points without changing it.
func (r *Router) CurrentTarget(ctx context.Context, domain string) (Target, error) {
	if !r.table.IsActive(domain) {
		return TargetNone, nil
	}
	rule, err := r.ruleAt(ctx, r.table.PriorityFor(domain))
	if err != nil || rule == nil {
		return TargetNone, err
	}

	storageActions, err := r.actions(ctx, domain, TargetStorage)
	if err != nil {
		return TargetNone, err
	}
	if sameActions(rule.Actions, storageActions) {
		return TargetStorage, nil
	}
	computeActions, err := r.actions(ctx, domain, TargetCompute)
	if err != nil && !errors.Is(err, ErrNoTargetGroup) {
		return TargetNone, err
	}
	if err == nil && sameActions(rule.Actions, computeActions) {
		return TargetCompute, nil
	}
	return TargetOther, nil
}

func (r *Router) actions(ctx context.Context, domain string, target Target) ([]elbtypes.Action, error) {
	switch target {
	case TargetStorage:
		if r.origin.TargetGroupARN != "" {
			return []elbtypes.Action{forward(r.origin.TargetGroupARN)}, nil
		}
		return []elbtypes.Action{{
			Type:  elbtypes.ActionTypeEnumRedirect,
			Order: aws.Int32(1),
			RedirectConfig: &elbtypes.RedirectActionConfig{
				Host:       aws.String(r.origin.WebsiteHost),
				Path:       aws.String("/" + storage.KeyFor(domain)),
				Port:       aws.String("80"),
				Protocol:   aws.String("HTTP"),
				StatusCode: elbtypes.RedirectActionStatusCodeEnumHttp302,
			},
		}}, nil
	case TargetCompute:
		arn, err := r.computeTargetGroup(ctx, domain)
		if err != nil {
			return nil, err
		}
		return []elbtypes.Action{forward(arn)}, nil
	default:
		return nil, fmt.Errorf("route %s: unsupported target %s", domain, target)
	}
}

func (r *Router) computeTargetGroup(ctx context.Context, domain string) (string, error) {
	name, _ := r.table.ServiceFor(domain)
	svc, ok := r.table.Service(name)
	if !ok {
		return "", fmt.Errorf("route %s: no managed service", domain)
	}
	tg := svc.TargetGroupName()
	if strings.HasPrefix(tg, "arn:") {
		return tg, nil
	}

	out, err := r.api.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{Names: []string{tg}})
	if err != nil {
		var notFound *elbtypes.TargetGroupNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("target group %s for %s: %w", tg, domain, ErrNoTargetGroup)
		}
		return "", fmt.Errorf("describe target group %s: %w", tg, err)
	}
	if len(out.TargetGroups) == 0 {
		return "", fmt.Errorf("target group %s for %s: %w", tg, domain, ErrNoTargetGroup)
	}
	return aws.ToString(out.TargetGroups[0].TargetGroupArn), nil
}

// ruleAt returns the listener rule at priority, or nil.
func (r *Router) ruleAt(ctx context.Context, priority int) (*elbtypes.Rule, error) {
	want := strconv.Itoa(priority)
	var marker *string
	for {
		out, err := r.api.DescribeRules(ctx, &elbv2.DescribeRulesInput{
			ListenerArn: aws.String(r.listener),
			Marker:      marker,
		})
		if err != nil {
			return nil, fmt.Errorf("describe rules on %s: %w", r.listener, err)
		}
		for i := range out.Rules {
			if aws.ToString(out.Rules[i].Priority) == want {
				return &out.Rules[i], nil
			}
		}
		if out.NextMarker == nil || *out.NextMarker == "" {
			return nil, nil
		}
		marker = out.NextMarker
	}
}

func forward(arn string) elbtypes.Action {
	return elbtypes.Action{
		Type:           elbtypes.ActionTypeEnumForward,
		Order:          aws.Int32(1),
		TargetGroupArn: aws.String(arn),
	}
}

func hostCondition(domain string) []elbtypes.RuleCondition {
	return []elbtypes.RuleCondition{{
		Field:            aws.String("host-header"),
		HostHeaderConfig: &elbtypes.HostHeaderConditionConfig{Values: []string{domain}},
	}}
}

func ruleHosts(rule *elbtypes.Rule) []string {
	var hosts []string
	for _, c := range rule.Conditions {
		if aws.ToString(c.Field) != "host-header" {
			continue
		}
		if c.HostHeaderConfig != nil {
			hosts = append(hosts, c.HostHeaderConfig.Values...)
		} else {
			hosts = append(hosts, c.Values...)
		}
	}
	return hosts
}

// actionKey reduces an action to what decides where traffic goes.
func actionKey(a elbtypes.Action) string {
	switch a.Type {
	case elbtypes.ActionTypeEnumForward:
		arn := aws.ToString(a.TargetGroupArn)
		if arn == "" && a.ForwardConfig != nil && len(a.ForwardConfig.TargetGroups) == 1 {
			arn = aws.ToString(a.ForwardConfig.TargetGroups[0].TargetGroupArn)
		}
		return "forward:" + arn
	case elbtypes.ActionTypeEnumRedirect:
		if a.RedirectConfig == nil {
			return "redirect:"
		}
		rc := a.RedirectConfig
		return fmt.Sprintf("redirect:%s:%s:%s", aws.ToString(rc.Host), aws.ToString(rc.Path), rc.StatusCode)
	default:
		return string(a.Type)
	}
}

func sameActions(have, want []elbtypes.Action) bool {
	if len(have) != len(want) {
		return false
	}
	for i := range have {
		if actionKey(have[i]) != actionKey(want[i]) {
			return false
		}
	}
	return true
}
