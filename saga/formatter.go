package saga

import (
	"fmt"
	"strings"
)

// Formatter renders saga events as human-readable text.
type Formatter interface {
	Format(events []Event) string
}

// PlainFormatter renders one line per event.
type PlainFormatter struct{}

func (f *PlainFormatter) Format(events []Event) string {
	var b strings.Builder
	for _, evt := range events {
		ts := evt.Timestamp.Format("15:04:05")
		fmt.Fprintf(&b, "%s %s %s\n", ts, ActionIcon(evt.Action), evt.Message)
	}
	return b.String()
}

func ActionIcon(action string) string {
	switch action {
	case ActionStart:
		return "▶"
	case ActionComplete:
		return "✓"
	case ActionSkipped:
		return "↷"
	case ActionFailed:
		return "✗"
	case ActionIgnored:
		return "!"
	default:
		return "·"
	}
}
