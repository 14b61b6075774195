package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownKey is returned when a binding names a key we cannot map
	ErrUnknownKey = errors.New("unknown key")
	// ErrUnknownModifier is returned for an unsupported modifier name
	ErrUnknownModifier = errors.New("unknown modifier")
)

// Modifiers is a set of held modifier keys
type Modifiers uint8

const (
	ModAlt Modifiers = 1 << iota
	ModCtrl
	ModShift
	ModSuper
)

// Has reports whether every modifier in m is set
func (mods Modifiers) Has(m Modifiers) bool {
	return mods&m == m
}

func (mods Modifiers) String() string {
	var parts []string
	if mods.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if mods.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if mods.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	if mods.Has(ModSuper) {
		parts = append(parts, "Super")
	}
	return strings.Join(parts, "+")
}

// KeyKind groups keys by how each platform encodes them
type KeyKind int

const (
	KeyLetter KeyKind = iota + 1
	KeyDigit
	KeyFunction
	KeyKeypad
)

// Key is a single non-modifier key
type Key struct {
	Kind KeyKind
	// Value is 'A'..'Z' for letters, otherwise the key number
	// (0-9, or 1-12 for function keys).
	Value int
}

func (k Key) String() string {
	switch k.Kind {
	case KeyLetter:
		return string(rune(k.Value))
	case KeyDigit:
		return fmt.Sprintf("%d", k.Value)
	case KeyFunction:
		return fmt.Sprintf("F%d", k.Value)
	case KeyKeypad:
		return fmt.Sprintf("Num%d", k.Value)
	default:
		return "?"
	}
}

// Binding is a modifier set plus one key, e.g. Alt+F
type Binding struct {
	Mods Modifiers
	Key  Key
}

func (b Binding) String() string {
	if b.Mods == 0 {
		return b.Key.String()
	}
	return b.Mods.String() + "+" + b.Key.String()
}

// ParseBinding parses strings such as "Alt+F", "ctrl-shift-f5" or "Num0".
func ParseBinding(s string) (Binding, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == '+' || r == '-'
	})
	if len(fields) == 0 {
		return Binding{}, fmt.Errorf("empty binding %q", s)
	}

	var b Binding
	for _, mod := range fields[:len(fields)-1] {
		m, err := parseModifier(mod)
		if err != nil {
			return Binding{}, fmt.Errorf("binding %q: %w", s, err)
		}
		b.Mods |= m
	}

	key, err := parseKey(fields[len(fields)-1])
	if err != nil {
		return Binding{}, fmt.Errorf("binding %q: %w", s, err)
	}
	b.Key = key
	return b, nil
}

func parseModifier(s string) (Modifiers, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alt", "mod1":
		return ModAlt, nil
	case "ctrl", "control":
		return ModCtrl, nil
	case "shift":
		return ModShift, nil
	case "super", "win", "meta", "mod4":
		return ModSuper, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModifier, s)
	}
}

func parseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	if len(upper) == 1 {
		c := upper[0]
		switch {
		case c >= 'A' && c <= 'Z':
			return Key{Kind: KeyLetter, Value: int(c)}, nil
		case c >= '0' && c <= '9':
			return Key{Kind: KeyDigit, Value: int(c - '0')}, nil
		}
	}

	var n int
	if strings.HasPrefix(upper, "NUM") {
		if _, err := fmt.Sscanf(upper[3:], "%d", &n); err == nil && len(upper) == 4 && n >= 0 && n <= 9 {
			return Key{Kind: KeyKeypad, Value: n}, nil
		}
	}
	if strings.HasPrefix(upper, "F") && len(upper) > 1 {
		if _, err := fmt.Sscanf(upper[1:], "%d", &n); err == nil && n >= 1 && n <= 12 && fmt.Sprintf("F%d", n) == upper {
			return Key{Kind: KeyFunction, Value: n}, nil
		}
	}

	return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Bindings maps each action to its key combination
type Bindings struct {
	Focus   Binding
	Close   Binding
	Visible Binding
}

// DefaultBindings returns Alt+F, Alt+C and Alt+V
func DefaultBindings() Bindings {
	return Bindings{
		Focus:   Binding{Mods: ModAlt, Key: Key{Kind: KeyLetter, Value: 'F'}},
		Close:   Binding{Mods: ModAlt, Key: Key{Kind: KeyLetter, Value: 'C'}},
		Visible: Binding{Mods: ModAlt, Key: Key{Kind: KeyLetter, Value: 'V'}},
	}
}

// ParseBindings parses the three configured binding strings
func ParseBindings(focus, hide, visible string) (Bindings, error) {
	var (
		b   Bindings
		err error
	)
	if b.Focus, err = ParseBinding(focus); err != nil {
		return Bindings{}, err
	}
	if b.Close, err = ParseBinding(hide); err != nil {
		return Bindings{}, err
	}
	if b.Visible, err = ParseBinding(visible); err != nil {
		return Bindings{}, err
	}
	return b, nil
}

// For returns the binding assigned to an action
func (b Bindings) For(a Action) Binding {
	switch a {
	case ActionFocus:
		return b.Focus
	case ActionClose:
		return b.Close
	default:
		return b.Visible
	}
}

// Args renders the bindings as hotkey-daemon command line flags
func (b Bindings) Args() []string {
	return []string{
		"--focus", b.Focus.String(),
		"--close", b.Close.String(),
		"--visible", b.Visible.String(),
	}
}
