// Package hotkey holds the vocabulary shared by the overlay backends and the
// privileged hotkey daemon: the three overlay actions, their wire tokens,
// configurable key bindings and socket discovery.
package hotkey

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Action is one of the overlay commands a global hotkey can trigger
type Action int

const (
	// ActionFocus makes the overlay interactive and topmost
	ActionFocus Action = iota + 1
	// ActionClose hides the overlay entirely
	ActionClose
	// ActionVisible keeps the overlay visible but passes input through
	ActionVisible
)

// Wire tokens sent by the daemon, one per line
const (
	TokenFocus   = "focus"
	TokenClose   = "close"
	TokenVisible = "visible"
)

// Actions lists every action in binding order
var Actions = []Action{ActionFocus, ActionClose, ActionVisible}

// Token returns the wire token for the action
func (a Action) Token() string {
	switch a {
	case ActionFocus:
		return TokenFocus
	case ActionClose:
		return TokenClose
	case ActionVisible:
		return TokenVisible
	default:
		return ""
	}
}

func (a Action) String() string {
	if t := a.Token(); t != "" {
		return t
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseToken converts a received line to an action.
// Unrecognized lines report false and are meant to be ignored.
func ParseToken(line string) (Action, bool) {
	switch strings.TrimRight(line, "\r\n") {
	case TokenFocus:
		return ActionFocus, true
	case TokenClose:
		return ActionClose, true
	case TokenVisible:
		return ActionVisible, true
	default:
		return 0, false
	}
}

// WriteAction writes the action's token followed by a newline
func WriteAction(w io.Writer, a Action) error {
	token := a.Token()
	if token == "" {
		return fmt.Errorf("invalid action: %d", int(a))
	}
	_, err := io.WriteString(w, token+"\n")
	return err
}

// ReadActions reads newline-delimited tokens from r until EOF, calling fn for
// every recognized one. It returns nil on EOF and the read error otherwise.
func ReadActions(r io.Reader, fn func(Action)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if action, ok := ParseToken(scanner.Text()); ok {
			fn(action)
		}
	}
	return scanner.Err()
}
