package viewport

import (
	"image/color"
	"testing"

	"github.com/bryanchriswhite/FocusOverlay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingWindow counts decoration requests
type countingWindow struct {
	*HeadlessWindow
	decorationCalls int
}

func (w *countingWindow) SetDecorations(enabled bool) {
	w.decorationCalls++
	w.HeadlessWindow.SetDecorations(enabled)
}

func TestDefaultManager(t *testing.T) {
	win := &countingWindow{HeadlessWindow: NewHeadlessWindow(Handle{})}
	m := NewDefault(win, DefaultOptions())

	assert.Equal(t, Focused, m.FocusState())
	assert.True(t, m.ShouldDrawGUI())
	assert.Equal(t, NonOverlayBackground, m.BackgroundColor())
	assert.Equal(t, "default", m.Name())

	for i := 0; i < 5; i++ {
		m.Update()
	}
	assert.Equal(t, 1, win.decorationCalls)
	assert.True(t, win.Decorations())
	assert.Equal(t, Focused, m.FocusState())
	assert.NoError(t, m.Close())
}

func TestDefaultManagerTransparent(t *testing.T) {
	opts := DefaultOptions()
	opts.TransparentBackground = true

	m := NewDefault(nil, opts)
	m.Update()
	assert.Equal(t, color.NRGBA{}, m.BackgroundColor())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.DisableOverlay = true
	cfg.FollowIntervalMs = 250
	cfg.Hotkeys.Focus = "Ctrl+F1"

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.Disabled)
	assert.Equal(t, "pokemmo", opts.TargetTitle)
	assert.Equal(t, int64(250), opts.FollowInterval.Milliseconds())
	assert.Equal(t, "Ctrl+F1", opts.Bindings.Focus.String())
	assert.Equal(t, "pkexec", opts.Daemon.Elevator)

	cfg.Hotkeys.Close = "Alt+Space"
	opts = OptionsFromConfig(cfg)
	assert.Equal(t, "Alt+C", opts.Bindings.Close.String(), "bad bindings fall back to defaults")
}

func TestHeadlessWindow(t *testing.T) {
	_, err := NewHeadlessWindow(Handle{}).Handle()
	assert.ErrorIs(t, err, ErrNoNativeHandle)

	w := NewHeadlessWindow(Handle{Kind: HandleWin32, Window: 42})
	h, err := w.Handle()
	require.NoError(t, err)
	assert.Equal(t, uintptr(42), h.Window)

	assert.True(t, w.CursorHittest())
	require.NoError(t, w.SetCursorHittest(false))
	assert.False(t, w.CursorHittest())
}
