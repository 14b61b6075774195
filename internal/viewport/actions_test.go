package viewport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/win32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFocusTakesInputAndForeground(t *testing.T) {
	sys := newFakeSystem()
	sys.styles[overlayHWND] = win32.WSExLayered | win32.WSExTransparent

	applyAction(sys, overlayHWND, gameHWND, hotkey.ActionFocus)

	assert.Equal(t, uint32(win32.WSExLayered), sys.styles[overlayHWND])
	assert.Equal(t, []string{
		fmt.Sprintf("show %d %d", overlayHWND, win32.SWShowMaximized),
		fmt.Sprintf("foreground %d", overlayHWND),
		fmt.Sprintf("style %d %#x", overlayHWND, win32.WSExLayered),
	}, sys.calls)
}

func TestApplyCloseHidesOverlay(t *testing.T) {
	sys := newFakeSystem()

	applyAction(sys, overlayHWND, gameHWND, hotkey.ActionClose)

	assert.Equal(t, []string{fmt.Sprintf("show %d %d", overlayHWND, win32.SWHide)}, sys.calls)
}

func TestApplyVisibleReturnsFocusToTarget(t *testing.T) {
	sys := newFakeSystem()

	applyAction(sys, overlayHWND, gameHWND, hotkey.ActionVisible)

	style := uint32(win32.WSExLayered | win32.WSExTransparent)
	assert.Equal(t, style, sys.styles[overlayHWND])
	assert.Equal(t, []string{
		fmt.Sprintf("show %d %d", overlayHWND, win32.SWShowMaximized),
		fmt.Sprintf("foreground %d", overlayHWND),
		fmt.Sprintf("style %d %#x", overlayHWND, style),
		fmt.Sprintf("foreground %d", desktopHWND),
		fmt.Sprintf("show %d %d", gameHWND, win32.SWShow),
		fmt.Sprintf("foreground %d", gameHWND),
	}, sys.calls)
}

func TestApplyVisibleSkipsMissingTarget(t *testing.T) {
	for name, target := range map[string]uintptr{"none": 0, "closed": 300} {
		t.Run(name, func(t *testing.T) {
			sys := newFakeSystem()

			applyAction(sys, overlayHWND, target, hotkey.ActionVisible)

			require.NotEmpty(t, sys.calls)
			assert.Equal(t, fmt.Sprintf("foreground %d", desktopHWND), sys.calls[len(sys.calls)-1])
		})
	}
}

func TestApplyContinuesWhenStyleIsRefused(t *testing.T) {
	sys := newFakeSystem()
	sys.styleErr = errors.New("access denied")

	applyAction(sys, overlayHWND, gameHWND, hotkey.ActionVisible)

	assert.Equal(t, fmt.Sprintf("foreground %d", gameHWND), sys.calls[len(sys.calls)-1])
}

func TestRegisterHotkeysInActionOrder(t *testing.T) {
	bindings := hotkey.DefaultBindings()
	var got []string

	ids, err := registerHotkeys(func(id int32, b hotkey.Binding) error {
		got = append(got, fmt.Sprintf("%d %s", id, b))
		return nil
	}, func(int32) { t.Fatal("nothing should be released") }, bindings)

	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ids)
	assert.Equal(t, []string{
		fmt.Sprintf("1 %s", bindings.For(hotkey.ActionFocus)),
		fmt.Sprintf("2 %s", bindings.For(hotkey.ActionClose)),
		fmt.Sprintf("3 %s", bindings.For(hotkey.ActionVisible)),
	}, got)
}

func TestRegisterHotkeysRollsBackOnRefusal(t *testing.T) {
	refused := errors.New("hotkey is already registered")
	var released []int32

	ids, err := registerHotkeys(func(id int32, b hotkey.Binding) error {
		if id == 3 {
			return refused
		}
		return nil
	}, func(id int32) { released = append(released, id) }, hotkey.DefaultBindings())

	require.ErrorIs(t, err, refused)
	assert.Contains(t, err.Error(), hotkey.ActionVisible.String())
	assert.Nil(t, ids)
	assert.Equal(t, []int32{1, 2}, released)
}
