package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"holiday/holiday"
	"holiday/orchestrator"
	"holiday/saga"
	"holiday/style"
)

func runLive(ctx context.Context, errOut io.Writer, e *env, mode holiday.Mode) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tea.Msg, 64)
	e.journal.OnAppend = func(evt saga.Event) { events <- evt }
	go func() {
		defer close(events)
		rep, err := e.orch.Enter(ctx, mode)
		events <- transitionDone{report: rep, err: err}
	}()

	p := tea.NewProgram(newTransitionModel(mode, events, cancel))
	final, err := p.Run()
	if err != nil {
		return err
	}

	tm := final.(transitionModel)
	if tm.err != nil {
		reportApplied(errOut, tm.report)
		return tm.err
	}
	return nil
}

// --- Messages ---

type transitionDone struct {
	report *orchestrator.Report
	err    error
}

// --- Model ---

type transitionModel struct {
	mode      holiday.Mode
	spinner   spinner.Model
	steps     []stepState
	status    string // "running" | "interrupting" | "completed" | "failed"
	report    *orchestrator.Report
	err       error
	startTime time.Time
	events    chan tea.Msg
	cancel    context.CancelFunc
}

type stepState struct {
	name     string
	started  int
	finished int
	changed  int
	failed   bool
	ignored  bool
}

func (s stepState) status() string {
	switch {
	case s.failed:
		return "failed"
	case s.started == 0:
		return "pending"
	case s.finished < s.started:
		return "running"
	case s.ignored:
		return "ignored"
	case s.changed > 0:
		return "completed"
	default:
		return "skipped"
	}
}

func newTransitionModel(mode holiday.Mode, events chan tea.Msg, cancel context.CancelFunc) transitionModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Sand)

	names := orchestrator.StepNames(mode)
	steps := make([]stepState, len(names))
	for i, n := range names {
		steps[i] = stepState{name: n}
	}

	return transitionModel{
		mode:      mode,
		spinner:   s,
		steps:     steps,
		status:    "running",
		startTime: time.Now(),
		events:    events,
		cancel:    cancel,
	}
}

func (m transitionModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m transitionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Quitting mid-step would abandon calls in flight, so ctrl+c only
		// asks the transition to stop at the next step boundary.
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.cancel()
			m.status = "interrupting"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case saga.Event:
		for i := range m.steps {
			if m.steps[i].name != msg.Step {
				continue
			}
			switch msg.Action {
			case saga.ActionStart:
				m.steps[i].started++
			case saga.ActionComplete:
				m.steps[i].finished++
				m.steps[i].changed++
			case saga.ActionSkipped:
				m.steps[i].finished++
			case saga.ActionIgnored:
				m.steps[i].finished++
				m.steps[i].ignored = true
			case saga.ActionFailed:
				m.steps[i].finished++
				m.steps[i].failed = true
			}
		}
		return m, waitForEvent(m.events)

	case transitionDone:
		m.report, m.err = msg.report, msg.err
		m.status = "completed"
		if msg.err != nil {
			m.status = "failed"
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m transitionModel) View() string {
	var b strings.Builder

	title := "☀️  HOLIDAY · VACATION"
	if m.mode == holiday.Work {
		title = "💼 HOLIDAY · WORK"
	}
	b.WriteString(style.Banner.Render(title))
	b.WriteString("\n")

	if m.report != nil && m.report.AlreadyInState {
		b.WriteString(style.SuccessBox.Render("✓ " + m.report.Summary()))
		b.WriteString("\n")
		return b.String()
	}

	for _, step := range m.steps {
		name := padRight(step.name, 24)
		switch step.status() {
		case "pending":
			fmt.Fprintf(&b, "  %s %s\n", style.DimText.Render(name), style.DimText.Render("waiting"))
		case "running":
			fmt.Fprintf(&b, "  %s %s %s\n", style.StepRunning.Render(name), m.spinner.View(),
				style.StepRunning.Render(fmt.Sprintf("%d/%d", step.finished, step.started)))
		case "completed":
			fmt.Fprintf(&b, "  %s %s\n", style.StepDone.Render(name), style.StepDone.Render(fmt.Sprintf("✓ %d changed", step.changed)))
		case "skipped":
			fmt.Fprintf(&b, "  %s %s\n", style.DimText.Render(name), style.DimText.Render("↷ already done"))
		case "ignored":
			fmt.Fprintf(&b, "  %s %s\n", style.Warning.Render(name), style.Warning.Render("! failed, ignored"))
		case "failed":
			fmt.Fprintf(&b, "  %s %s\n", style.StepFailed.Render(name), style.StepFailed.Render("✗ failed"))
		}
	}
	b.WriteString("\n")

	elapsed := time.Since(m.startTime).Round(time.Second)
	switch m.status {
	case "running":
		b.WriteString(m.spinner.View() + style.DimText.Render(fmt.Sprintf(" Working... (%s)", elapsed)))
	case "interrupting":
		b.WriteString(m.spinner.View() + style.Warning.Render(" Stopping after the current step..."))
	case "completed":
		b.WriteString(style.SuccessBox.Render(fmt.Sprintf("✓ %s in %s", m.report.Summary(), elapsed)))
	}
	b.WriteString("\n")
	return b.String()
}

// waitForEvent reads the next event from the channel.
func waitForEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
