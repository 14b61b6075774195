package viewport

import (
	"strings"

	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

// DisplayServer is the windowing system detected from the environment
type DisplayServer int

const (
	DisplayUnknown DisplayServer = iota
	DisplayX11
	DisplayWayland
)

func (d DisplayServer) String() string {
	switch d {
	case DisplayX11:
		return "x11"
	case DisplayWayland:
		return "wayland"
	default:
		return "unknown"
	}
}

// DetectDisplayServer inspects the session environment. XDG_SESSION_TYPE
// wins; otherwise a Wayland socket without $DISPLAY means pure Wayland and
// $DISPLAY alone means X11 (including XWayland).
func DetectDisplayServer(getenv func(string) string) DisplayServer {
	switch strings.ToLower(getenv("XDG_SESSION_TYPE")) {
	case "wayland":
		return DisplayWayland
	case "x11":
		return DisplayX11
	}

	if getenv("WAYLAND_DISPLAY") != "" && getenv("DISPLAY") == "" {
		return DisplayWayland
	}
	if getenv("DISPLAY") != "" {
		return DisplayX11
	}
	return DisplayUnknown
}

// New picks the backend for this platform once. Any native failure is
// logged and yields the default manager; New never fails.
func New(win Window, opts Options) Manager {
	log := logger.WithComponent("viewport")

	if opts.Disabled {
		log.Info().Msg("Overlay disabled, using default manager")
		return NewDefault(win, opts)
	}

	m, err := newNative(win, opts)
	if err != nil {
		log.Warn().Err(err).Msg("Native overlay unavailable, using default manager")
		return NewDefault(win, opts)
	}

	log.Info().Str("backend", m.Name()).Msg("Native overlay manager started")
	return m
}
