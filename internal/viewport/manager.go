package viewport

import (
	"errors"
	"image/color"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/config"
	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

var (
	// ErrNoNativeHandle is returned when the host window exposes no native handle
	ErrNoNativeHandle = errors.New("no native window handle")
	// ErrHandleMismatch is returned when the handle belongs to another display server
	ErrHandleMismatch = errors.New("window handle does not match backend")
	// ErrElevationDenied is returned when the user declines the privilege prompt
	ErrElevationDenied = errors.New("privilege elevation denied")
)

// Manager is implemented by every platform backend. The host owns exactly
// one and calls Update once per frame.
type Manager interface {
	// Update drains pending state changes. It never blocks.
	Update()
	// FocusState is the state as of the last Update
	FocusState() FocusState
	// BackgroundColor is the clear color the host should use
	BackgroundColor() color.NRGBA
	// ShouldDrawGUI reports whether the host should render this frame
	ShouldDrawGUI() bool
	// Name identifies the backend ("default", "win32", "x11", "wayland")
	Name() string
	// Close releases native resources. Listener goroutines blocked in
	// native calls may outlive it.
	Close() error
}

// HandleKind identifies the windowing system a Handle belongs to
type HandleKind int

const (
	HandleNone HandleKind = iota
	HandleWin32
	HandleXlib
	HandleXcb
	HandleWayland
)

func (k HandleKind) String() string {
	switch k {
	case HandleWin32:
		return "win32"
	case HandleXlib:
		return "xlib"
	case HandleXcb:
		return "xcb"
	case HandleWayland:
		return "wayland"
	default:
		return "none"
	}
}

// Handle is a native window handle encoded as plain integers. It can be
// passed between goroutines freely; only the goroutine that uses it turns
// it back into a live handle.
type Handle struct {
	Kind    HandleKind
	Window  uintptr
	Display uintptr
}

// Window is the overlay window as seen by a backend. Implementations must
// be safe for use from the backend's listener goroutine.
type Window interface {
	Handle() (Handle, error)
	SetDecorations(enabled bool)
	SetCursorHittest(enabled bool) error
}

// HeadlessWindow is a Window with no on-screen counterpart. It records the
// requested decorations and hit-testing state.
type HeadlessWindow struct {
	handle Handle

	mu          sync.Mutex
	decorations bool
	hittest     bool
}

// NewHeadlessWindow returns a window reporting h as its native handle
func NewHeadlessWindow(h Handle) *HeadlessWindow {
	return &HeadlessWindow{handle: h, hittest: true}
}

// Handle returns the configured handle or ErrNoNativeHandle
func (w *HeadlessWindow) Handle() (Handle, error) {
	if w.handle.Kind == HandleNone {
		return Handle{}, ErrNoNativeHandle
	}
	return w.handle, nil
}

func (w *HeadlessWindow) SetDecorations(enabled bool) {
	w.mu.Lock()
	w.decorations = enabled
	w.mu.Unlock()
}

func (w *HeadlessWindow) SetCursorHittest(enabled bool) error {
	w.mu.Lock()
	w.hittest = enabled
	w.mu.Unlock()
	return nil
}

// Decorations returns the last decorations request
func (w *HeadlessWindow) Decorations() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.decorations
}

// CursorHittest returns the last hit-testing request
func (w *HeadlessWindow) CursorHittest() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hittest
}

// DaemonOptions controls the privileged hotkey helper used on Wayland
type DaemonOptions struct {
	Binary        string
	Socket        string
	Elevator      string
	Dialog        string
	RetryInterval time.Duration
}

// Options configures backend selection and behavior
type Options struct {
	// Disabled forces the default manager
	Disabled              bool
	TransparentBackground bool
	Bindings              hotkey.Bindings
	TargetTitle           string
	FollowInterval        time.Duration
	Daemon                DaemonOptions
}

// DefaultOptions mirrors config.Defaults
func DefaultOptions() Options {
	return OptionsFromConfig(config.Defaults())
}

// OptionsFromConfig converts the file configuration into backend options.
// Unparseable bindings fall back to the defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	bindings, err := cfg.Bindings()
	if err != nil {
		logger.WithComponent("viewport").Warn().Err(err).Msg("Invalid hotkeys, using defaults")
		bindings = hotkey.DefaultBindings()
	}

	return Options{
		Disabled:              cfg.DisableOverlay,
		TransparentBackground: cfg.TransparentBackgroundAlways,
		Bindings:              bindings,
		TargetTitle:           cfg.TargetWindowTitle,
		FollowInterval:        time.Duration(cfg.FollowIntervalMs) * time.Millisecond,
		Daemon: DaemonOptions{
			Binary:        cfg.Daemon.Binary,
			Socket:        cfg.Daemon.Socket,
			Elevator:      cfg.Daemon.Elevator,
			Dialog:        cfg.Daemon.Dialog,
			RetryInterval: time.Duration(cfg.Daemon.ConnectRetryMs) * time.Millisecond,
		},
	}
}

// defaults supplies the transparent background and always-draw behavior
// that native backends share.
type defaults struct{}

func (defaults) BackgroundColor() color.NRGBA { return color.NRGBA{} }
func (defaults) ShouldDrawGUI() bool          { return true }

// tracker holds the frame-side focus state of a native backend. The zero
// value reports Focused.
type tracker struct {
	updates queue[FocusState]
	current FocusState
}

// drain applies the newest pushed state and reports whether it changed
func (t *tracker) drain() bool {
	s, ok := t.updates.Drain()
	if !ok || s == t.FocusState() {
		return false
	}
	t.current = s
	return true
}

func (t *tracker) FocusState() FocusState {
	if t.current == 0 {
		return Focused
	}
	return t.current
}
