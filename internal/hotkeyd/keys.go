package hotkeyd

import (
	"encoding/binary"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
)

// Linux input event constants (linux/input-event-codes.h)
const (
	evKey = 0x01

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2

	keyMax = 0x2ff
)

// Modifier key codes
const (
	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

var modifierKeys = map[uint16]hotkey.Modifiers{
	keyLeftAlt:    hotkey.ModAlt,
	keyRightAlt:   hotkey.ModAlt,
	keyLeftCtrl:   hotkey.ModCtrl,
	keyRightCtrl:  hotkey.ModCtrl,
	keyLeftShift:  hotkey.ModShift,
	keyRightShift: hotkey.ModShift,
	keyLeftMeta:   hotkey.ModSuper,
	keyRightMeta:  hotkey.ModSuper,
}

// letterCodes are the scan codes of A..Z. They follow physical QWERTY
// positions regardless of the active layout.
var letterCodes = [26]uint16{
	30, 48, 46, 32, 18, 33, 34, 35, 23, 36, 37, 38, 50, // A-M
	49, 24, 25, 16, 19, 31, 20, 22, 47, 17, 45, 21, 44, // N-Z
}

// keypadCodes are KP0..KP9
var keypadCodes = [10]uint16{82, 79, 80, 81, 75, 76, 77, 71, 72, 73}

// keyCode returns the evdev code for k
func keyCode(k hotkey.Key) (uint16, bool) {
	switch k.Kind {
	case hotkey.KeyLetter:
		if k.Value >= 'A' && k.Value <= 'Z' {
			return letterCodes[k.Value-'A'], true
		}
	case hotkey.KeyDigit:
		switch {
		case k.Value == 0:
			return 11, true
		case k.Value >= 1 && k.Value <= 9:
			return uint16(1 + k.Value), true
		}
	case hotkey.KeyFunction:
		switch {
		case k.Value >= 1 && k.Value <= 10:
			return uint16(58 + k.Value), true
		case k.Value == 11:
			return 87, true
		case k.Value == 12:
			return 88, true
		}
	case hotkey.KeyKeypad:
		if k.Value >= 0 && k.Value <= 9 {
			return keypadCodes[k.Value], true
		}
	}
	return 0, false
}

// KeyEvent is an EV_KEY input event
type KeyEvent struct {
	Code  uint16
	Value int32
}

// decodeEvents parses a buffer of struct input_event records and keeps the
// EV_KEY ones. timevalSize is the size of struct timeval on this platform.
func decodeEvents(buf []byte, timevalSize int) []KeyEvent {
	size := timevalSize + 8
	var events []KeyEvent
	for off := 0; off+size <= len(buf); off += size {
		rec := buf[off+timevalSize : off+size]
		if binary.NativeEndian.Uint16(rec[0:2]) != evKey {
			continue
		}
		events = append(events, KeyEvent{
			Code:  binary.NativeEndian.Uint16(rec[2:4]),
			Value: int32(binary.NativeEndian.Uint32(rec[4:8])),
		})
	}
	return events
}

// hasKeys reports whether an EV_KEY capability bitmap has any bit set
func hasKeys(bitmap []byte) bool {
	for _, b := range bitmap {
		if b != 0 {
			return true
		}
	}
	return false
}
