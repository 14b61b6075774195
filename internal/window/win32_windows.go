//go:build windows

package window

import (
	"github.com/bryanchriswhite/FocusOverlay/internal/win32"
)

// Win32Lister implements Lister with EnumWindows
type Win32Lister struct{}

// NewLister returns the Win32 lister
func NewLister() (Lister, error) {
	return &Win32Lister{}, nil
}

// Name returns the lister name
func (l *Win32Lister) Name() string {
	return "win32"
}

// Close is a no-op; user32 needs no connection
func (l *Win32Lister) Close() error {
	return nil
}

// ListWindows returns every titled top-level window
func (l *Win32Lister) ListWindows() ([]*Info, error) {
	handles, err := win32.TopLevelWindows()
	if err != nil {
		return nil, err
	}

	windows := make([]*Info, 0, len(handles))
	for _, hwnd := range handles {
		info := &Info{
			ID:      uint64(hwnd),
			Title:   win32.WindowText(hwnd),
			Class:   win32.ClassName(hwnd),
			PID:     win32.WindowPID(hwnd),
			Visible: win32.IsWindowVisible(hwnd),
		}
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows, nil
}
