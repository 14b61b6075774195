//go:build windows

package win32

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procGetDesktopWindow         = user32.NewProc("GetDesktopWindow")
	procGetWindowLongW           = user32.NewProc("GetWindowLongW")
	procSetWindowLongW           = user32.NewProc("SetWindowLongW")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procMonitorFromWindow        = user32.NewProc("MonitorFromWindow")
	procGetMonitorInfoW          = user32.NewProc("GetMonitorInfoW")
	procRegisterHotKey           = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey         = user32.NewProc("UnregisterHotKey")
	procGetMessageW              = user32.NewProc("GetMessageW")
	procPostThreadMessageW       = user32.NewProc("PostThreadMessageW")
)

// gwlExStyle is GWL_EXSTYLE
var gwlExStyle int32 = -20

// Msg mirrors MSG
type Msg struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// NewCallback slots are never freed, so a single enum callback is shared
// and results are collected under enumMu.
var (
	enumMu      sync.Mutex
	enumResults []uintptr
	enumProc    = windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		enumResults = append(enumResults, hwnd)
		return 1
	})
)

// TopLevelWindows returns every top-level window handle
func TopLevelWindows() ([]uintptr, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumResults = nil
	r, _, err := procEnumWindows.Call(enumProc, 0)
	if r == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	out := enumResults
	enumResults = nil
	return out, nil
}

// WindowText returns a window's title
func WindowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	read, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), n+1)
	if read == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:read])
}

// ClassName returns a window's class name
func ClassName(hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

// WindowPID returns the process owning a window
func WindowPID(hwnd uintptr) int {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return int(pid)
}

// IsWindow reports whether hwnd still names an existing window
func IsWindow(hwnd uintptr) bool {
	r, _, _ := procIsWindow.Call(hwnd)
	return r != 0
}

// IsWindowVisible reports the WS_VISIBLE state
func IsWindowVisible(hwnd uintptr) bool {
	r, _, _ := procIsWindowVisible.Call(hwnd)
	return r != 0
}

// ShowWindow wraps ShowWindow; the return value is the previous visibility
func ShowWindow(hwnd uintptr, cmd int32) bool {
	r, _, _ := procShowWindow.Call(hwnd, uintptr(cmd))
	return r != 0
}

// SetForegroundWindow brings hwnd to the foreground
func SetForegroundWindow(hwnd uintptr) bool {
	r, _, _ := procSetForegroundWindow.Call(hwnd)
	return r != 0
}

// DesktopWindow returns the desktop window handle
func DesktopWindow() uintptr {
	r, _, _ := procGetDesktopWindow.Call()
	return r
}

// ExStyle returns the extended window style
func ExStyle(hwnd uintptr) uint32 {
	r, _, _ := procGetWindowLongW.Call(hwnd, uintptr(gwlExStyle))
	return uint32(r)
}

// SetExStyle replaces the extended window style
func SetExStyle(hwnd uintptr, style uint32) error {
	r, _, err := procSetWindowLongW.Call(hwnd, uintptr(gwlExStyle), uintptr(style))
	// A zero return is only a failure when the last error is set
	if r == 0 && err != windows.ERROR_SUCCESS {
		return fmt.Errorf("SetWindowLongW: %w", err)
	}
	return nil
}

// SetWindowPos wraps SetWindowPos with a null insert-after handle
func SetWindowPos(hwnd uintptr, x, y, cx, cy int32, flags uint32) error {
	r, _, err := procSetWindowPos.Call(hwnd, 0,
		uintptr(x), uintptr(y), uintptr(cx), uintptr(cy), uintptr(flags))
	if r == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

// MonitorFromWindow returns the monitor nearest to hwnd
func MonitorFromWindow(hwnd uintptr) uintptr {
	r, _, _ := procMonitorFromWindow.Call(hwnd, MonitorDefaultToNearest)
	return r
}

// GetMonitorInfo returns the monitor and work area rectangles
func GetMonitorInfo(monitor uintptr) (MonitorInfo, error) {
	info := MonitorInfo{}
	info.Size = uint32(unsafe.Sizeof(info))
	r, _, err := procGetMonitorInfoW.Call(monitor, uintptr(unsafe.Pointer(&info)))
	if r == 0 {
		return MonitorInfo{}, fmt.Errorf("GetMonitorInfoW: %w", err)
	}
	return info, nil
}

// RegisterHotKey registers a thread-level hotkey (hwnd 0) with the given id
func RegisterHotKey(id int32, mods, vk uint32) error {
	r, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(mods), uintptr(vk))
	if r == 0 {
		return fmt.Errorf("RegisterHotKey: %w", err)
	}
	return nil
}

// UnregisterHotKey releases a thread-level hotkey
func UnregisterHotKey(id int32) {
	procUnregisterHotKey.Call(0, uintptr(id))
}

// GetMessage blocks for the next message on the calling thread's queue.
// It returns false on WM_QUIT or error.
func GetMessage(msg *Msg) (bool, error) {
	r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(msg)), 0, 0, 0)
	switch int32(r) {
	case -1:
		return false, fmt.Errorf("GetMessageW: %w", err)
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

// PostQuit posts WM_QUIT to another thread's queue
func PostQuit(threadID uint32) {
	procPostThreadMessageW.Call(uintptr(threadID), WMQuit, 0, 0)
}

// CurrentThreadID returns the calling OS thread id
func CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}
