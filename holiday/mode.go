package holiday

import "fmt"

// Mode is the desired state of the whole fleet.
type Mode int

const (
	Vacation Mode = iota
	Work
)

func (m Mode) String() string {
	switch m {
	case Vacation:
		return "vacation"
	case Work:
		return "work"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "vacation" or "work".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "vacation":
		return Vacation, nil
	case "work":
		return Work, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}
