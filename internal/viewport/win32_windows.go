package viewport

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"github.com/bryanchriswhite/FocusOverlay/internal/win32"
	"github.com/bryanchriswhite/FocusOverlay/internal/window"
)

// Win32Manager registers global hotkeys on a dedicated OS thread and keeps
// the overlay on the target window's monitor.
type Win32Manager struct {
	defaults
	tracker

	overlay  uintptr
	sys      windowSystem
	targets  queue[uintptr]
	follower *monitorFollower
	threadID atomic.Uint32
}

// NewWin32 registers the hotkeys on a dedicated thread. A refused
// registration fails construction so the caller falls back to the default
// manager.
func NewWin32(win Window, opts Options) (*Win32Manager, error) {
	h, err := win.Handle()
	if err != nil {
		return nil, fmt.Errorf("win32: %w", err)
	}
	if h.Kind != HandleWin32 || h.Window == 0 {
		return nil, fmt.Errorf("win32: %w: got %s", ErrHandleMismatch, h.Kind)
	}

	m := &Win32Manager{overlay: h.Window, sys: win32System{}}

	ready := make(chan error, 1)
	go m.listen(opts.Bindings, ready)
	if err := <-ready; err != nil {
		return nil, fmt.Errorf("win32: %w", err)
	}

	win.SetDecorations(false)
	m.follower = newMonitorFollower(m.sys, h.Window, opts.TargetTitle, opts.FollowInterval, m.targets.Push)
	m.follower.locate()

	return m, nil
}

// listen owns the hotkey registrations and the message pump. The
// registrations belong to this OS thread, so it stays locked for life.
func (m *Win32Manager) listen(bindings hotkey.Bindings, ready chan<- error) {
	runtime.LockOSThread()
	log := logger.WithComponent("win32")

	registered, err := registerHotkeys(func(id int32, b hotkey.Binding) error {
		return win32.RegisterHotKey(id, win32.HotkeyModifiers(b.Mods), win32.VirtualKey(b.Key))
	}, win32.UnregisterHotKey, bindings)
	if err != nil {
		ready <- err
		return
	}
	defer func() {
		for _, id := range registered {
			win32.UnregisterHotKey(id)
		}
	}()

	m.threadID.Store(win32.CurrentThreadID())
	ready <- nil

	var (
		target uintptr
		msg    win32.Msg
	)
	for {
		ok, err := win32.GetMessage(&msg)
		if err != nil {
			log.Error().Err(err).Msg("Message pump failed")
			return
		}
		if !ok {
			return
		}

		if t, ok := m.targets.Drain(); ok {
			target = t
		}

		if msg.Message != win32.WMHotkey {
			continue
		}
		id := int(msg.WParam)
		if id < 1 || id > len(hotkey.Actions) {
			continue
		}

		action := hotkey.Actions[id-1]
		log.Debug().Stringer("action", action).Msg("Hotkey pressed")
		applyAction(m.sys, m.overlay, target, action)
		m.updates.Push(StateFor(action))
	}
}

// Update drains hotkey states and runs the monitor follower
func (m *Win32Manager) Update() {
	m.drain()
	m.follower.tick()
}

func (m *Win32Manager) Name() string { return "win32" }

// Close stops the message pump, which releases the hotkeys
func (m *Win32Manager) Close() error {
	if id := m.threadID.Load(); id != 0 {
		win32.PostQuit(id)
	}
	return nil
}

// win32System implements windowSystem with user32
type win32System struct{}

func (win32System) IsWindow(h uintptr) bool { return win32.IsWindow(h) }

func (win32System) MonitorFromWindow(h uintptr) uintptr { return win32.MonitorFromWindow(h) }

func (win32System) ShowWindow(h uintptr, cmd int32) { win32.ShowWindow(h, cmd) }

func (win32System) SetForegroundWindow(h uintptr) { win32.SetForegroundWindow(h) }

func (win32System) DesktopWindow() uintptr { return win32.DesktopWindow() }

func (win32System) ExStyle(h uintptr) uint32 { return win32.ExStyle(h) }

func (win32System) SetExStyle(h uintptr, style uint32) error { return win32.SetExStyle(h, style) }

func (win32System) TopLevelWindows() ([]*window.Info, error) {
	lister, err := window.NewLister()
	if err != nil {
		return nil, err
	}
	defer lister.Close()
	return lister.ListWindows()
}

// MoveToMonitor restores the overlay, moves it onto the monitor's work area
// and maximizes it again. Windows remembers the maximized geometry, so the
// restore step is what makes the maximize land on the new monitor.
func (win32System) MoveToMonitor(overlay, monitor uintptr) error {
	info, err := win32.GetMonitorInfo(monitor)
	if err != nil {
		return err
	}

	win32.ShowWindow(overlay, win32.SWRestore)
	if err := win32.SetWindowPos(overlay, info.Work.Left, info.Work.Top, 0, 0,
		win32.SWPNoSize|win32.SWPNoZOrder|win32.SWPFrameChanged); err != nil {
		return err
	}
	win32.ShowWindow(overlay, win32.SWShowMaximized)
	return nil
}
