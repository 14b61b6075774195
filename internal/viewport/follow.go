package viewport

import (
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"github.com/bryanchriswhite/FocusOverlay/internal/window"
)

// windowSystem is the part of the native window API the follower and the
// hotkey actions use. Handles are plain integers.
type windowSystem interface {
	IsWindow(h uintptr) bool
	MonitorFromWindow(h uintptr) uintptr
	// MoveToMonitor places the overlay on monitor's work area and maximizes it
	MoveToMonitor(overlay, monitor uintptr) error
	TopLevelWindows() ([]*window.Info, error)

	ShowWindow(h uintptr, cmd int32)
	SetForegroundWindow(h uintptr)
	DesktopWindow() uintptr
	ExStyle(h uintptr) uint32
	SetExStyle(h uintptr, style uint32) error
}

// monitorFollower keeps the overlay on the same monitor as the target
// window. It runs on the frame goroutine and does real work at most once
// per interval.
type monitorFollower struct {
	sys      windowSystem
	overlay  uintptr
	matcher  window.Matcher
	interval time.Duration
	now      func() time.Time
	// onTarget receives every newly located target handle
	onTarget func(uintptr)

	lastCheck time.Time
	target    uintptr
	// followed is the monitor the overlay was last moved to or found on
	followed uintptr
}

func newMonitorFollower(sys windowSystem, overlay uintptr, title string, interval time.Duration, onTarget func(uintptr)) *monitorFollower {
	if interval <= 0 {
		interval = time.Second
	}
	return &monitorFollower{
		sys:      sys,
		overlay:  overlay,
		matcher:  window.Matcher{Title: title},
		interval: interval,
		now:      time.Now,
		onTarget: onTarget,
	}
}

// tick re-checks the target once the interval has elapsed
func (f *monitorFollower) tick() {
	now := f.now()
	if !f.lastCheck.IsZero() && now.Sub(f.lastCheck) < f.interval {
		return
	}
	f.lastCheck = now

	if f.target == 0 || !f.sys.IsWindow(f.target) {
		f.locate()
	}
	if f.target != 0 {
		f.follow()
	}
}

// locate scans the top-level windows for the target title
func (f *monitorFollower) locate() {
	log := logger.WithComponent("follow")

	windows, err := f.sys.TopLevelWindows()
	if err != nil {
		log.Debug().Err(err).Msg("Window scan failed")
		return
	}

	var found uintptr
	for _, w := range windows {
		if uintptr(w.ID) == f.overlay {
			continue
		}
		if w.Visible && f.matcher.Match(w.Title) {
			found = uintptr(w.ID)
			break
		}
	}

	if found == f.target {
		return
	}
	f.target = found
	log.Info().Uint64("hwnd", uint64(found)).Str("title", f.matcher.Title).Msg("Target window changed")
	if f.onTarget != nil {
		f.onTarget(found)
	}
}

// follow moves the overlay when the target sits on a different monitor.
// A move is attempted once per target monitor change; a failed move is
// not retried until the target changes monitor again.
func (f *monitorFollower) follow() {
	targetMonitor := f.sys.MonitorFromWindow(f.target)
	overlayMonitor := f.sys.MonitorFromWindow(f.overlay)
	if targetMonitor == 0 {
		return
	}
	if targetMonitor == overlayMonitor {
		f.followed = targetMonitor
		return
	}
	if targetMonitor == f.followed {
		return
	}

	f.followed = targetMonitor
	log := logger.WithComponent("follow")
	log.Info().
		Uint64("from", uint64(overlayMonitor)).
		Uint64("to", uint64(targetMonitor)).
		Msg("Moving overlay to target monitor")
	if err := f.sys.MoveToMonitor(f.overlay, targetMonitor); err != nil {
		log.Warn().Err(err).Msg("Failed to move overlay")
	}
}
