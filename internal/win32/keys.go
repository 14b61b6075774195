// Package win32 wraps the handful of user32 calls the overlay needs. The
// key and constant tables build on every platform so they can be tested
// anywhere; the calls themselves are Windows-only.
package win32

import "github.com/bryanchriswhite/FocusOverlay/internal/hotkey"

// RegisterHotKey modifier flags
const (
	ModAlt      = 0x0001
	ModControl  = 0x0002
	ModShift    = 0x0004
	ModWin      = 0x0008
	ModNoRepeat = 0x4000
)

// Message and window constants
const (
	WMQuit   = 0x0012
	WMHotkey = 0x0312

	SWHide          = 0
	SWShow          = 5
	SWShowMaximized = 3
	SWRestore       = 9

	SWPNoSize       = 0x0001
	SWPNoZOrder     = 0x0004
	SWPFrameChanged = 0x0020

	WSExTransparent = 0x00000020
	WSExLayered     = 0x00080000

	MonitorDefaultToNearest = 0x00000002
)

// Virtual key bases
const (
	vkDigit0  = 0x30
	vkLetterA = 0x41
	vkNumpad0 = 0x60
	vkF1      = 0x70
)

// HotkeyModifiers converts a modifier set to RegisterHotKey flags.
// MOD_NOREPEAT is always added so holding a chord fires once.
func HotkeyModifiers(m hotkey.Modifiers) uint32 {
	flags := uint32(ModNoRepeat)
	if m.Has(hotkey.ModAlt) {
		flags |= ModAlt
	}
	if m.Has(hotkey.ModCtrl) {
		flags |= ModControl
	}
	if m.Has(hotkey.ModShift) {
		flags |= ModShift
	}
	if m.Has(hotkey.ModSuper) {
		flags |= ModWin
	}
	return flags
}

// VirtualKey returns the VK_* code for a key
func VirtualKey(k hotkey.Key) uint32 {
	switch k.Kind {
	case hotkey.KeyLetter:
		return vkLetterA + uint32(k.Value-'A')
	case hotkey.KeyDigit:
		return vkDigit0 + uint32(k.Value)
	case hotkey.KeyFunction:
		return vkF1 + uint32(k.Value-1)
	case hotkey.KeyKeypad:
		return vkNumpad0 + uint32(k.Value)
	default:
		return 0
	}
}

// Rect is a RECT in screen coordinates
type Rect struct {
	Left, Top, Right, Bottom int32
}

// MonitorInfo mirrors MONITORINFO
type MonitorInfo struct {
	Size    uint32
	Monitor Rect
	Work    Rect
	Flags   uint32
}
