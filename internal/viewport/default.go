package viewport

import "image/color"

// NonOverlayBackground is the opaque clear color used when the window is a
// regular, non-passthrough window.
var NonOverlayBackground = color.NRGBA{R: 70, G: 70, B: 70, A: 210}

// DefaultManager is used when no native integration is available or the
// overlay is disabled. It is always Focused.
type DefaultManager struct {
	defaults

	win         Window
	transparent bool
	decorated   bool
}

// NewDefault returns the plain window manager. win may be nil.
func NewDefault(win Window, opts Options) *DefaultManager {
	return &DefaultManager{
		win:         win,
		transparent: opts.TransparentBackground,
	}
}

// Update turns window decorations on the first time it runs
func (m *DefaultManager) Update() {
	if m.decorated || m.win == nil {
		return
	}
	m.win.SetDecorations(true)
	m.decorated = true
}

func (m *DefaultManager) FocusState() FocusState { return Focused }

func (m *DefaultManager) BackgroundColor() color.NRGBA {
	if m.transparent {
		return m.defaults.BackgroundColor()
	}
	return NonOverlayBackground
}

func (m *DefaultManager) Name() string { return "default" }

func (m *DefaultManager) Close() error { return nil }
