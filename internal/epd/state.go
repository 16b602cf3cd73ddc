package epd

import "fmt"

// State is the driver's view of the controller.
type State int

const (
	Uninitialized State = iota
	Resetting
	Initializing
	Idle
	Refreshing
	Sleeping
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Resetting:
		return "resetting"
	case Initializing:
		return "initializing"
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Sleeping:
		return "sleeping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RefreshMode selects the waveform bank used for a refresh.
type RefreshMode int

const (
	Full RefreshMode = iota
	Partial
)

func (m RefreshMode) String() string {
	if m == Partial {
		return "partial"
	}
	return "full"
}

// ParseRefreshMode maps "full" / "partial" to a RefreshMode.
func ParseRefreshMode(s string) (RefreshMode, error) {
	switch s {
	case "", "full":
		return Full, nil
	case "partial":
		return Partial, nil
	default:
		return Full, fmt.Errorf("epd: unknown refresh mode %q", s)
	}
}
