// Package saga records what a transition did, step by step, so an operator
// can see exactly how far it got.
package saga

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ActionStart    = "step.start"
	ActionComplete = "step.complete"
	ActionSkipped  = "step.skipped"
	ActionFailed   = "step.failed"
	ActionIgnored  = "step.ignored"
)

type Event struct {
	ID        string            `json:"id"`
	SagaID    string            `json:"sagaId"`
	Timestamp time.Time         `json:"timestamp"`
	Category  string            `json:"category"` // vacation, work
	Step      string            `json:"step"`
	Resource  string            `json:"resource,omitempty"`
	Action    string            `json:"action"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Store interface {
	Append(ctx context.Context, evt *Event) error
	ListBySaga(ctx context.Context, sagaID string) ([]Event, error)
}

// Saga is a helper for logging the events of one transition.
type Saga struct {
	ID       string
	Category string
	store    Store
}

func New(store Store, category string) *Saga {
	return &Saga{
		ID:       uuid.New().String(),
		Category: category,
		store:    store,
	}
}

func (s *Saga) Log(ctx context.Context, step, resource, action, message string, metadata map[string]string) error {
	return s.store.Append(ctx, &Event{
		ID:        uuid.New().String(),
		SagaID:    s.ID,
		Timestamp: time.Now(),
		Category:  s.Category,
		Step:      step,
		Resource:  resource,
		Action:    action,
		Message:   message,
		Metadata:  metadata,
	})
}

func (s *Saga) StepStart(ctx context.Context, step, resource string) error {
	return s.Log(ctx, step, resource, ActionStart, label(step, resource)+" started", nil)
}

func (s *Saga) StepComplete(ctx context.Context, step, resource string, elapsed time.Duration, metadata map[string]string) error {
	return s.Log(ctx, step, resource, ActionComplete, label(step, resource)+" completed", withDuration(metadata, elapsed))
}

func (s *Saga) StepSkipped(ctx context.Context, step, resource, reason string) error {
	return s.Log(ctx, step, resource, ActionSkipped, label(step, resource)+" skipped ("+reason+")", nil)
}

func (s *Saga) StepFailed(ctx context.Context, step, resource string, err error) error {
	return s.Log(ctx, step, resource, ActionFailed, label(step, resource)+" failed: "+err.Error(), map[string]string{
		"error": err.Error(),
	})
}

// StepIgnored records a failure that does not stop the transition.
func (s *Saga) StepIgnored(ctx context.Context, step, resource string, err error) error {
	return s.Log(ctx, step, resource, ActionIgnored, label(step, resource)+" failed (non-fatal): "+err.Error(), map[string]string{
		"error": err.Error(),
	})
}

func label(step, resource string) string {
	if resource == "" {
		return step
	}
	return step + " " + resource
}

func withDuration(metadata map[string]string, elapsed time.Duration) map[string]string {
	out := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out["durationMs"] = strconv.FormatInt(elapsed.Milliseconds(), 10)
	return out
}

// MemoryStore keeps events for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
	// OnAppend, if set, sees every event after it is stored.
	OnAppend func(Event)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, evt *Event) error {
	m.mu.Lock()
	m.events = append(m.events, *evt)
	hook := m.OnAppend
	m.mu.Unlock()

	if hook != nil {
		hook(*evt)
	}
	return nil
}

func (m *MemoryStore) ListBySaga(_ context.Context, sagaID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.SagaID == sagaID {
			out = append(out, e)
		}
	}
	return out, nil
}
