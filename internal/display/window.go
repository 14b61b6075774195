// Package display creates a plain X11 overlay window for the headless host,
// so the viewport backends have a real window to act on outside a GUI.
package display

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"github.com/bryanchriswhite/FocusOverlay/internal/viewport"
)

// Config sizes and names the overlay window
type Config struct {
	Width  int
	Height int
	Title  string
}

// Window is an X11 top-level window implementing viewport.Window
type Window struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	win    xproto.Window

	mu      sync.Mutex
	mapped  bool
	shaped  bool
	lastBg  uint32
	running bool
}

// New connects to $DISPLAY and maps the overlay window
func New(cfg Config) (*Window, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	w := &Window{
		conn:   conn,
		screen: xproto.Setup(conn).DefaultScreen(conn),
	}
	if err := w.create(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	if err := shape.Init(conn); err != nil {
		logger.WithComponent("display").Warn().Err(err).Msg("SHAPE extension missing, click-through unavailable")
	} else {
		w.shaped = true
	}
	return w, nil
}

func (w *Window) create(cfg Config) error {
	windowID, err := xproto.NewWindowId(w.conn)
	if err != nil {
		return fmt.Errorf("failed to create window ID: %w", err)
	}
	w.win = windowID

	// No event mask: nothing would ever drain the queue
	w.lastBg = pixel(viewport.NonOverlayBackground)
	err = xproto.CreateWindowChecked(
		w.conn,
		w.screen.RootDepth,
		w.win,
		w.screen.Root,
		0, 0,
		uint16(cfg.Width), uint16(cfg.Height),
		0,
		xproto.WindowClassInputOutput,
		w.screen.RootVisual,
		xproto.CwBackPixel,
		[]uint32{w.lastBg},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if err := w.setWindowTitle(cfg.Title); err != nil {
		logger.WithComponent("display").Warn().Err(err).Msg("Failed to set window title")
	}
	if err := w.setWindowClass("focusoverlay", "FocusOverlay"); err != nil {
		logger.WithComponent("display").Warn().Err(err).Msg("Failed to set window class")
	}

	if err := xproto.MapWindowChecked(w.conn, w.win).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}
	w.mapped = true
	w.running = true

	logger.WithComponent("display").Info().
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Uint32("window_id", uint32(w.win)).
		Msg("Overlay window created")
	return nil
}

// Handle reports the window as an XCB handle
func (w *Window) Handle() (viewport.Handle, error) {
	return viewport.Handle{Kind: viewport.HandleXcb, Window: uintptr(w.win)}, nil
}

// SetDecorations toggles the frame through _MOTIF_WM_HINTS
func (w *Window) SetDecorations(enabled bool) {
	if err := w.setMotifDecorations(enabled); err != nil {
		logger.WithComponent("display").Warn().Err(err).Bool("enabled", enabled).Msg("Failed to set decorations")
	}
}

// SetCursorHittest makes the window click-through when disabled by emptying
// its SHAPE input region.
func (w *Window) SetCursorHittest(enabled bool) error {
	if !w.shaped {
		return fmt.Errorf("SHAPE extension not available")
	}
	if enabled {
		return shape.MaskChecked(w.conn, shape.SoSet, shape.SkInput, w.win, 0, 0, xproto.PixmapNone).Check()
	}
	return shape.RectanglesChecked(w.conn, shape.SoSet, shape.SkInput, xproto.ClipOrderingUnsorted,
		w.win, 0, 0, []xproto.Rectangle{}).Check()
}

// Render reflects a status snapshot: hidden unmaps, focused raises and the
// background follows the manager's clear color.
func (w *Window) Render(s viewport.Status) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	if !s.DrawGUI {
		if w.mapped {
			w.mapped = false
			return xproto.UnmapWindowChecked(w.conn, w.win).Check()
		}
		return nil
	}

	if !w.mapped {
		if err := xproto.MapWindowChecked(w.conn, w.win).Check(); err != nil {
			return fmt.Errorf("failed to map window: %w", err)
		}
		w.mapped = true
	}

	if c, err := ParseHexColor(s.Background); err == nil && pixel(c) != w.lastBg {
		w.lastBg = pixel(c)
		xproto.ChangeWindowAttributes(w.conn, w.win, xproto.CwBackPixel, []uint32{w.lastBg})
		xproto.ClearArea(w.conn, false, w.win, 0, 0, 0, 0)
	}

	if s.Focus.IsFocused() {
		xproto.ConfigureWindow(w.conn, w.win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	}

	w.conn.Sync()
	return nil
}

// Close destroys the window and drops the connection
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false

	xproto.DestroyWindow(w.conn, w.win)
	w.conn.Sync()
	w.conn.Close()

	logger.WithComponent("display").Info().Msg("Overlay window closed")
	return nil
}

// setWindowTitle sets the window title
func (w *Window) setWindowTitle(title string) error {
	titleAtom, err := w.getAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}

	utf8Atom, err := w.getAtom("UTF8_STRING")
	if err != nil {
		return err
	}

	return xproto.ChangePropertyChecked(
		w.conn,
		xproto.PropModeReplace,
		w.win,
		titleAtom,
		utf8Atom,
		8,
		uint32(len(title)),
		[]byte(title),
	).Check()
}

// setWindowClass sets the window class
func (w *Window) setWindowClass(instance, class string) error {
	// WM_CLASS format: instance\0class\0
	classStr := instance + "\x00" + class + "\x00"

	return xproto.ChangePropertyChecked(
		w.conn,
		xproto.PropModeReplace,
		w.win,
		xproto.AtomWmClass,
		xproto.AtomString,
		8,
		uint32(len(classStr)),
		[]byte(classStr),
	).Check()
}

func (w *Window) setMotifDecorations(enabled bool) error {
	atom, err := w.getAtom("_MOTIF_WM_HINTS")
	if err != nil {
		return err
	}
	data := motifHints(enabled)
	return xproto.ChangePropertyChecked(
		w.conn,
		xproto.PropModeReplace,
		w.win,
		atom,
		atom,
		32,
		uint32(len(data)/4),
		data,
	).Check()
}

// getAtom gets an atom ID by name
func (w *Window) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(w.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

// motifHints encodes {flags, functions, decorations, input_mode, status}
// with only MWM_HINTS_DECORATIONS set.
func motifHints(decorated bool) []byte {
	const hintsDecorations = 1 << 1
	var decorations uint32
	if decorated {
		decorations = 1
	}
	data := make([]byte, 20)
	xgb.Put32(data[0:], hintsDecorations)
	xgb.Put32(data[8:], decorations)
	return data
}

// pixel converts c to a 24-bit TrueColor value, premultiplied by alpha
func pixel(c color.NRGBA) uint32 {
	r := uint32(c.R) * uint32(c.A) / 255
	g := uint32(c.G) * uint32(c.A) / 255
	b := uint32(c.B) * uint32(c.A) / 255
	return r<<16 | g<<8 | b
}

// ParseHexColor parses #rrggbbaa as produced by viewport.HexColor
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
