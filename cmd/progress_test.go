package cmd

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"holiday/holiday"
	"holiday/orchestrator"
	"holiday/saga"
)

func feed(m transitionModel, msgs ...tea.Msg) transitionModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(transitionModel)
	}
	return m
}

func evt(step, action string) saga.Event {
	return saga.Event{Step: step, Resource: "r", Action: action}
}

func TestTransitionModelTracksSteps(t *testing.T) {
	m := newTransitionModel(holiday.Vacation, make(chan tea.Msg), func() {})
	m = feed(m,
		evt(orchestrator.StepUploadPlaceholder, saga.ActionStart),
		evt(orchestrator.StepUploadPlaceholder, saga.ActionStart),
		evt(orchestrator.StepUploadPlaceholder, saga.ActionComplete),
	)
	if got := m.steps[0].status(); got != "running" {
		t.Fatalf("status with one op outstanding = %q, want running", got)
	}

	m = feed(m,
		evt(orchestrator.StepUploadPlaceholder, saga.ActionSkipped),
		evt(orchestrator.StepEnableStaticHosting, saga.ActionStart),
		evt(orchestrator.StepEnableStaticHosting, saga.ActionSkipped),
		evt(orchestrator.StepRouteStorage, saga.ActionStart),
		evt(orchestrator.StepRouteStorage, saga.ActionFailed),
	)

	want := []string{"completed", "skipped", "failed", "pending"}
	for i, w := range want {
		if got := m.steps[i].status(); got != w {
			t.Errorf("step %s status = %q, want %q", m.steps[i].name, got, w)
		}
	}

	m = feed(m, transitionDone{report: &orchestrator.Report{Mode: holiday.Vacation}, err: errors.New("boom")})
	if m.status != "failed" || m.err == nil {
		t.Errorf("status = %q err = %v, want failed with error", m.status, m.err)
	}
}

func TestTransitionModelInterrupt(t *testing.T) {
	cancelled := false
	m := newTransitionModel(holiday.Work, make(chan tea.Msg), func() { cancelled = true })
	m = feed(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !cancelled {
		t.Fatal("ctrl+c did not cancel the transition")
	}
	if m.status != "interrupting" {
		t.Errorf("status = %q, want interrupting", m.status)
	}
	if !strings.Contains(m.View(), "Stopping after the current step") {
		t.Error("view does not show the pending stop")
	}
}

func TestTransitionModelAlreadyInState(t *testing.T) {
	m := newTransitionModel(holiday.Vacation, make(chan tea.Msg), func() {})
	m = feed(m, transitionDone{report: &orchestrator.Report{Mode: holiday.Vacation, AlreadyInState: true}})
	if m.status != "completed" {
		t.Fatalf("status = %q, want completed", m.status)
	}
	if !strings.Contains(m.View(), "already on vacation") {
		t.Errorf("view = %q, want the already-on-vacation confirmation", m.View())
	}
}

func TestPadRightIgnoresStyling(t *testing.T) {
	if got := padRight("abc", 6); got != "abc   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdefg", 3); got != "abcdefg" {
		t.Errorf("padRight truncated: %q", got)
	}
}
