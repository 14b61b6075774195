package viewport

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/window"
	"github.com/stretchr/testify/assert"
)

const (
	overlayHWND = 100
	gameHWND    = 200
	desktopHWND = 10
	monitorA    = 1
	monitorB    = 2
)

// fakeSystem is a window system with scripted monitors and windows
type fakeSystem struct {
	windows  []*window.Info
	monitors map[uintptr]uintptr
	alive    map[uintptr]bool
	scanErr  error
	moveErr  error
	scans    int
	moves    []uintptr
	styles   map[uintptr]uint32
	styleErr error
	calls    []string
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		windows: []*window.Info{
			{ID: overlayHWND, Title: "PokeMMO", Visible: true},
			{ID: 150, Title: "Terminal", Visible: true},
			{ID: gameHWND, Title: "Pоkеmmо", Visible: true},
		},
		monitors: map[uintptr]uintptr{overlayHWND: monitorA, gameHWND: monitorA},
		alive:    map[uintptr]bool{overlayHWND: true, gameHWND: true},
		styles:   map[uintptr]uint32{},
	}
}

func (s *fakeSystem) IsWindow(h uintptr) bool { return s.alive[h] }

func (s *fakeSystem) MonitorFromWindow(h uintptr) uintptr { return s.monitors[h] }

func (s *fakeSystem) ShowWindow(h uintptr, cmd int32) {
	s.calls = append(s.calls, fmt.Sprintf("show %d %d", h, cmd))
}

func (s *fakeSystem) SetForegroundWindow(h uintptr) {
	s.calls = append(s.calls, fmt.Sprintf("foreground %d", h))
}

func (s *fakeSystem) DesktopWindow() uintptr { return desktopHWND }

func (s *fakeSystem) ExStyle(h uintptr) uint32 { return s.styles[h] }

func (s *fakeSystem) SetExStyle(h uintptr, style uint32) error {
	s.calls = append(s.calls, fmt.Sprintf("style %d %#x", h, style))
	if s.styleErr != nil {
		return s.styleErr
	}
	s.styles[h] = style
	return nil
}

func (s *fakeSystem) TopLevelWindows() ([]*window.Info, error) {
	s.scans++
	return s.windows, s.scanErr
}

func (s *fakeSystem) MoveToMonitor(overlay, monitor uintptr) error {
	s.moves = append(s.moves, monitor)
	if s.moveErr == nil {
		s.monitors[overlay] = monitor
	}
	return s.moveErr
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestFollower(sys *fakeSystem, targets *[]uintptr) (*monitorFollower, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	f := newMonitorFollower(sys, overlayHWND, "pokemmo", time.Second, func(h uintptr) {
		*targets = append(*targets, h)
	})
	f.now = clock.now
	return f, clock
}

func TestFollowerLocatesTarget(t *testing.T) {
	sys := newFakeSystem()
	var targets []uintptr
	f, _ := newTestFollower(sys, &targets)

	f.tick()
	assert.Equal(t, []uintptr{gameHWND}, targets, "overlay itself is never the target")
	assert.Empty(t, sys.moves)
}

func TestFollowerRateLimited(t *testing.T) {
	sys := newFakeSystem()
	sys.alive[gameHWND] = false
	var targets []uintptr
	f, clock := newTestFollower(sys, &targets)

	for i := 0; i < 60; i++ {
		f.tick()
		clock.advance(10 * time.Millisecond)
	}
	assert.Equal(t, 1, sys.scans)

	clock.advance(time.Second)
	f.tick()
	assert.Equal(t, 2, sys.scans)
}

func TestFollowerMovesOncePerMonitorChange(t *testing.T) {
	sys := newFakeSystem()
	var targets []uintptr
	f, clock := newTestFollower(sys, &targets)

	f.tick()
	assert.Empty(t, sys.moves)

	// game moves to monitor B
	sys.monitors[gameHWND] = monitorB
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		f.tick()
	}
	assert.Equal(t, []uintptr{monitorB}, sys.moves)

	// and back to A
	sys.monitors[gameHWND] = monitorA
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		f.tick()
	}
	assert.Equal(t, []uintptr{monitorB, monitorA}, sys.moves)
	assert.Equal(t, 1, sys.scans, "a live target is not rescanned")
}

func TestFollowerFailedMoveNotRetriedEveryTick(t *testing.T) {
	sys := newFakeSystem()
	sys.moveErr = errors.New("access denied")
	var targets []uintptr
	f, clock := newTestFollower(sys, &targets)

	f.tick()
	sys.monitors[gameHWND] = monitorB
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		f.tick()
	}
	assert.Equal(t, []uintptr{monitorB}, sys.moves)
}

func TestFollowerRescansWhenTargetCloses(t *testing.T) {
	sys := newFakeSystem()
	var targets []uintptr
	f, clock := newTestFollower(sys, &targets)

	f.tick()
	sys.alive[gameHWND] = false
	sys.windows = sys.windows[:2]

	clock.advance(time.Second)
	f.tick()
	assert.Equal(t, []uintptr{gameHWND, 0}, targets)

	// game restarts with a new handle
	sys.windows = append(sys.windows, &window.Info{ID: 300, Title: "PokeMMO", Visible: true})
	sys.alive[300] = true
	sys.monitors[300] = monitorA

	clock.advance(time.Second)
	f.tick()
	assert.Equal(t, []uintptr{gameHWND, 0, 300}, targets)
}

func TestFollowerScanError(t *testing.T) {
	sys := newFakeSystem()
	sys.scanErr = errors.New("enum failed")
	sys.windows = nil
	var targets []uintptr
	f, _ := newTestFollower(sys, &targets)

	f.tick()
	assert.Empty(t, targets)
	assert.Empty(t, sys.moves)
}
