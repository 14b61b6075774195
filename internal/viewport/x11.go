package viewport

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

// lockMasks are grabbed alongside every binding so Caps Lock and Num Lock
// do not stop a chord from matching.
var lockMasks = []uint16{
	0,
	xproto.ModMaskLock,
	xproto.ModMask2,
	xproto.ModMaskLock | xproto.ModMask2,
}

const (
	// modifierBits covers Shift through Mod5; button state bits are ignored
	modifierBits = 0x00ff
	lockBits     = xproto.ModMaskLock | xproto.ModMask2
)

// keyboardMapping is a GetKeyboardMapping reply
type keyboardMapping struct {
	first   xproto.Keycode
	perCode int
	keysyms []xproto.Keysym
}

// keycodeFor returns the first keycode whose row contains sym
func keycodeFor(m keyboardMapping, sym xproto.Keysym) (xproto.Keycode, bool) {
	if m.perCode <= 0 {
		return 0, false
	}
	for i, s := range m.keysyms {
		if s == sym {
			return m.first + xproto.Keycode(i/m.perCode), true
		}
	}
	return 0, false
}

// keysyms returns the X keysyms that may produce k, preferred first
func keysyms(k hotkey.Key) []xproto.Keysym {
	switch k.Kind {
	case hotkey.KeyLetter:
		upper := xproto.Keysym(k.Value)
		return []xproto.Keysym{upper + ('a' - 'A'), upper}
	case hotkey.KeyDigit:
		return []xproto.Keysym{xproto.Keysym('0' + k.Value)}
	case hotkey.KeyFunction:
		return []xproto.Keysym{xproto.Keysym(0xffbe + k.Value - 1)}
	case hotkey.KeyKeypad:
		return []xproto.Keysym{xproto.Keysym(0xffb0 + k.Value)}
	default:
		return nil
	}
}

// x11Mods converts a modifier set to an X modifier mask
func x11Mods(m hotkey.Modifiers) uint16 {
	var mask uint16
	if m.Has(hotkey.ModShift) {
		mask |= xproto.ModMaskShift
	}
	if m.Has(hotkey.ModCtrl) {
		mask |= xproto.ModMaskControl
	}
	if m.Has(hotkey.ModAlt) {
		mask |= xproto.ModMask1
	}
	if m.Has(hotkey.ModSuper) {
		mask |= xproto.ModMask4
	}
	return mask
}

// keyGrabber is the X server as seen by grab setup
type keyGrabber interface {
	KeyboardMapping() (keyboardMapping, error)
	GrabKey(mods uint16, key xproto.Keycode) error
}

type grabKey struct {
	code xproto.Keycode
	mods uint16
}

// grabTable maps grabbed chords to actions
type grabTable map[grabKey]hotkey.Action

// lookup matches a key press with lock bits masked off
func (t grabTable) lookup(code xproto.Keycode, state uint16) (hotkey.Action, bool) {
	a, ok := t[grabKey{code: code, mods: state & modifierBits &^ lockBits}]
	return a, ok
}

// grabBindings resolves each binding to a keycode and grabs it under every
// lock mask. The first failure aborts setup.
func grabBindings(g keyGrabber, bindings hotkey.Bindings) (grabTable, error) {
	mapping, err := g.KeyboardMapping()
	if err != nil {
		return nil, fmt.Errorf("keyboard mapping: %w", err)
	}

	table := make(grabTable)
	for _, action := range hotkey.Actions {
		b := bindings.For(action)

		var (
			code  xproto.Keycode
			found bool
		)
		for _, sym := range keysyms(b.Key) {
			if code, found = keycodeFor(mapping, sym); found {
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: no keycode for %s", hotkey.ErrUnknownKey, b.Key)
		}

		mods := x11Mods(b.Mods)
		for _, lock := range lockMasks {
			if err := g.GrabKey(mods|lock, code); err != nil {
				return nil, fmt.Errorf("grab %s (keycode %d, mask %#x): %w", b, code, mods|lock, err)
			}
		}
		table[grabKey{code: code, mods: mods}] = action
	}
	return table, nil
}

// xgbGrabber grabs keys on the root window of a live connection
type xgbGrabber struct {
	conn *xgb.Conn
	root xproto.Window
}

func (g *xgbGrabber) KeyboardMapping() (keyboardMapping, error) {
	setup := xproto.Setup(g.conn)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)

	reply, err := xproto.GetKeyboardMapping(g.conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return keyboardMapping{}, err
	}
	return keyboardMapping{
		first:   setup.MinKeycode,
		perCode: int(reply.KeysymsPerKeycode),
		keysyms: reply.Keysyms,
	}, nil
}

func (g *xgbGrabber) GrabKey(mods uint16, key xproto.Keycode) error {
	return xproto.GrabKeyChecked(g.conn, false, g.root, mods, key,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
}

// X11Manager grabs the hotkeys on the root window and waits for key presses
// on its own goroutine. There is no window following on X11.
type X11Manager struct {
	defaults
	tracker

	conn *xgb.Conn
}

// NewX11 grabs the configured bindings. The Xlib display pointer cannot be
// shared with xgb, so a second connection to $DISPLAY is opened.
func NewX11(win Window, opts Options) (*X11Manager, error) {
	h, err := win.Handle()
	if err != nil {
		return nil, fmt.Errorf("x11: %w", err)
	}
	if h.Kind != HandleXlib && h.Kind != HandleXcb {
		return nil, fmt.Errorf("x11: %w: got %s", ErrHandleMismatch, h.Kind)
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("x11: failed to connect to X server: %w", err)
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root

	table, err := grabBindings(&xgbGrabber{conn: conn, root: root}, opts.Bindings)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11: %w", err)
	}

	if err := xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskKeyPress}).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11: failed to set event mask: %w", err)
	}

	m := &X11Manager{conn: conn}
	go m.listen(table)

	logger.WithComponent("x11").Info().
		Str("focus", opts.Bindings.Focus.String()).
		Str("close", opts.Bindings.Close.String()).
		Str("visible", opts.Bindings.Visible.String()).
		Msg("Grabbed hotkeys")
	return m, nil
}

func (m *X11Manager) listen(table grabTable) {
	log := logger.WithComponent("x11")
	for {
		ev, xerr := m.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			log.Debug().Msg("X connection closed, hotkey listener stopped")
			return
		}
		if xerr != nil {
			log.Warn().Str("error", xerr.Error()).Msg("X11 error")
			continue
		}

		kp, ok := ev.(xproto.KeyPressEvent)
		if !ok {
			continue
		}
		if action, ok := table.lookup(kp.Detail, kp.State); ok {
			log.Debug().Stringer("action", action).Msg("Hotkey pressed")
			m.updates.Push(StateFor(action))
		}
	}
}

// Update drains pending hotkey states
func (m *X11Manager) Update() { m.drain() }

func (m *X11Manager) Name() string { return "x11" }

// Close closes the connection, which releases the grabs and ends the listener
func (m *X11Manager) Close() error {
	m.conn.Close()
	return nil
}
