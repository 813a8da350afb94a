// Package holiday holds the static table of what holiday mode manages: the
// active domains, the compute service behind each, and the listener rule
// priority each domain is routed at.
package holiday

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPriority is returned for any domain outside the active set.
const DefaultPriority = 999

//go:embed domains.yaml
var defaultTable []byte

// Service is a managed compute service.
type Service struct {
	Name string `yaml:"name"`
	// Count is the steady-state task count used in work mode.
	Count       int    `yaml:"count"`
	TargetGroup string `yaml:"targetGroup,omitempty"`
}

// TargetGroupName is the load-balancer target group serving the service in
// work mode. It defaults to the service name with "-service" replaced by
// "-tg".
func (s Service) TargetGroupName() string {
	if s.TargetGroup != "" {
		return s.TargetGroup
	}
	return strings.TrimSuffix(s.Name, "-service") + "-tg"
}

// Domain is an active hostname.
type Domain struct {
	Host     string `yaml:"host"`
	Service  string `yaml:"service"`
	Priority int    `yaml:"priority"`
}

type document struct {
	Services []Service `yaml:"services"`
	Domains  []Domain  `yaml:"domains"`
}

// Table is read-only after construction and safe for concurrent use.
type Table struct {
	services   []Service
	byService  map[string]Service
	domains    []string
	mappings   map[string]string
	priorities map[string]int
}

// ConfigError lists every invariant the table violates.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid holiday configuration: " + strings.Join(e.Problems, "; ")
}

// Default parses the table compiled into the binary.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Parse builds a table from YAML.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse holiday table: %w", err)
	}
	return New(doc.Services, doc.Domains)
}

// New validates the mappings and returns the table. Any violation is a
// programming error in the static data; nothing is partially built.
func New(services []Service, domains []Domain) (*Table, error) {
	t := &Table{
		byService:  make(map[string]Service, len(services)),
		mappings:   make(map[string]string, len(domains)),
		priorities: make(map[string]int, len(domains)),
	}
	var problems []string

	for _, s := range services {
		switch {
		case s.Name == "":
			problems = append(problems, "service with empty name")
			continue
		case s.Count < 1:
			problems = append(problems, fmt.Sprintf("service %s: steady-state count must be positive, got %d", s.Name, s.Count))
		}
		if _, dup := t.byService[s.Name]; dup {
			problems = append(problems, fmt.Sprintf("service %s listed twice", s.Name))
			continue
		}
		t.byService[s.Name] = s
		t.services = append(t.services, s)
	}

	owner := make(map[int]string)
	for _, d := range domains {
		if d.Host == "" {
			problems = append(problems, "domain with empty host")
			continue
		}
		if _, dup := t.mappings[d.Host]; dup {
			problems = append(problems, fmt.Sprintf("domain %s listed twice", d.Host))
			continue
		}
		if _, ok := t.byService[d.Service]; !ok {
			problems = append(problems, fmt.Sprintf("domain %s maps to unmanaged service %q", d.Host, d.Service))
		}
		if d.Priority < 1 || d.Priority >= DefaultPriority {
			problems = append(problems, fmt.Sprintf("domain %s: priority %d out of range 1-%d", d.Host, d.Priority, DefaultPriority-1))
		}
		if other, taken := owner[d.Priority]; taken {
			problems = append(problems, fmt.Sprintf("priority %d shared by %s and %s", d.Priority, other, d.Host))
		}
		owner[d.Priority] = d.Host
		t.mappings[d.Host] = d.Service
		t.priorities[d.Host] = d.Priority
		t.domains = append(t.domains, d.Host)
	}

	problems = append(problems, t.crossCheck()...)
	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	sort.Strings(t.domains)
	return t, nil
}

// crossCheck re-asserts the three mapping invariants over the built maps.
func (t *Table) crossCheck() []string {
	var problems []string
	for d := range t.mappings {
		if _, ok := t.priorities[d]; !ok {
			problems = append(problems, fmt.Sprintf("domain %s has a service but no priority", d))
		}
	}
	for d := range t.priorities {
		if _, ok := t.mappings[d]; !ok {
			problems = append(problems, fmt.Sprintf("domain %s has a priority but no service", d))
		}
	}
	return problems
}

// Domains returns the active domains in sorted order.
func (t *Table) Domains() []string {
	return append([]string(nil), t.domains...)
}

// Services returns every managed service in declaration order.
func (t *Table) Services() []Service {
	return append([]Service(nil), t.services...)
}

// ServiceNames returns the names of every managed service.
func (t *Table) ServiceNames() []string {
	names := make([]string, len(t.services))
	for i, s := range t.services {
		names[i] = s.Name
	}
	return names
}

// Service looks up a managed service by name.
func (t *Table) Service(name string) (Service, bool) {
	s, ok := t.byService[name]
	return s, ok
}

// ServiceFor returns the service behind an active domain. The boolean is
// false for domains outside the active set.
func (t *Table) ServiceFor(domain string) (string, bool) {
	s, ok := t.mappings[domain]
	return s, ok
}

// PriorityFor returns the listener rule priority for domain, or
// DefaultPriority when the domain is not active.
func (t *Table) PriorityFor(domain string) int {
	if p, ok := t.priorities[domain]; ok {
		return p
	}
	return DefaultPriority
}

// IsActive reports whether domain gets holiday treatment.
func (t *Table) IsActive(domain string) bool {
	_, ok := t.mappings[domain]
	return ok
}
