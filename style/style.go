package style

import (
	"github.com/charmbracelet/lipgloss"

	"holiday/orchestrator"
	"holiday/routing"
)

var (
	// Colors
	Sand   = lipgloss.Color("#D97706")
	Green  = lipgloss.Color("#10B981")
	Red    = lipgloss.Color("#EF4444")
	Yellow = lipgloss.Color("#F59E0B")
	Sky    = lipgloss.Color("#0EA5E9")
	Dim    = lipgloss.Color("#6B7280")
	White  = lipgloss.Color("#F9FAFB")

	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Sand).
		MarginBottom(1)

	Bold    = lipgloss.NewStyle().Bold(true).Foreground(White)
	DimText = lipgloss.NewStyle().Foreground(Dim)
	Warning = lipgloss.NewStyle().Foreground(Yellow)

	Healthy   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Unhealthy = lipgloss.NewStyle().Foreground(Red).Bold(true)

	// Step indicators
	StepRunning = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	StepDone    = lipgloss.NewStyle().Foreground(Green)
	StepFailed  = lipgloss.NewStyle().Foreground(Red).Bold(true)

	TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(Sand).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Dim).
		PaddingRight(2)

	ErrorBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Red).
		Foreground(Red).
		Padding(0, 1).
		MarginTop(1)

	SuccessBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Green).
		Foreground(Green).
		Padding(0, 1).
		MarginTop(1)

	// Key-value
	Key = lipgloss.NewStyle().Foreground(Dim).Width(12)
	Val = lipgloss.NewStyle().Foreground(White)
)

// TargetBadge colours a routing target: storage is vacation, compute is work.
func TargetBadge(t routing.Target) string {
	switch t {
	case routing.TargetStorage:
		return lipgloss.NewStyle().Foreground(Sand).Render(t.String())
	case routing.TargetCompute:
		return lipgloss.NewStyle().Foreground(Sky).Render(t.String())
	case routing.TargetNone:
		return DimText.Render(t.String())
	default:
		return Warning.Render(t.String())
	}
}

func FleetBadge(s orchestrator.FleetState) string {
	switch s {
	case orchestrator.FleetRunning:
		return lipgloss.NewStyle().Foreground(Sky).Bold(true).Render(string(s))
	case orchestrator.FleetStopped:
		return lipgloss.NewStyle().Foreground(Sand).Bold(true).Render(string(s))
	default:
		return Warning.Render(string(s))
	}
}

func Check(ok bool) string {
	if ok {
		return Healthy.Render("✓")
	}
	return Unhealthy.Render("✗")
}
