// Package viewport decides whether the overlay window is interactive and
// lets global hotkeys switch that state while another application has input
// focus. Each platform gets its own Manager; the host ticks exactly one of
// them per frame.
package viewport

import (
	"fmt"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
)

// FocusState is the overlay's interaction state
type FocusState int

const (
	// Focused: the overlay is interactive and topmost
	Focused FocusState = iota + 1
	// Unfocused: the overlay is drawn but input passes through to the window below
	Unfocused
	// Hidden: the overlay is hidden until explicitly shown again
	Hidden
)

func (s FocusState) IsFocused() bool   { return s == Focused }
func (s FocusState) IsUnfocused() bool { return s == Unfocused }
func (s FocusState) IsHidden() bool    { return s == Hidden }

func (s FocusState) String() string {
	switch s {
	case Focused:
		return "focused"
	case Unfocused:
		return "unfocused"
	case Hidden:
		return "hidden"
	default:
		return fmt.Sprintf("FocusState(%d)", int(s))
	}
}

// MarshalText renders the state name for JSON and logs
func (s FocusState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StateFor maps a hotkey action to the state it requests
func StateFor(a hotkey.Action) FocusState {
	switch a {
	case hotkey.ActionClose:
		return Hidden
	case hotkey.ActionVisible:
		return Unfocused
	default:
		return Focused
	}
}
