package viewport

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

// Status is a snapshot of the active manager after a tick
type Status struct {
	Backend    string     `json:"backend"`
	Focus      FocusState `json:"focus"`
	DrawGUI    bool       `json:"draw_gui"`
	Background string     `json:"background"`
}

// HexColor formats c as #rrggbbaa
func HexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func snapshot(m Manager) Status {
	return Status{
		Backend:    m.Name(),
		Focus:      m.FocusState(),
		DrawGUI:    m.ShouldDrawGUI(),
		Background: HexColor(m.BackgroundColor()),
	}
}

// Host owns the active Manager, ticks it and publishes status changes.
// The manager can be swapped at runtime with Rebuild.
type Host struct {
	win   Window
	build func(Window, Options) Manager

	// rebuildMu serializes Rebuild; mu guards the fields below
	rebuildMu sync.Mutex
	mu        sync.RWMutex
	manager   Manager
	opts      Options
	status    Status
	listeners []chan Status
	closed    bool
}

// NewHost builds the initial manager with New
func NewHost(win Window, opts Options) *Host {
	return newHost(win, opts, New)
}

func newHost(win Window, opts Options, build func(Window, Options) Manager) *Host {
	m := build(win, opts)
	return &Host{
		win:       win,
		build:     build,
		manager:   m,
		opts:      opts,
		status:    snapshot(m),
		listeners: make([]chan Status, 0),
	}
}

// Tick runs one frame: Update the manager and publish if anything changed
func (h *Host) Tick() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.manager.Update()
	s := snapshot(h.manager)
	prev := h.status
	h.status = s
	h.mu.Unlock()

	if s != prev {
		if s.Focus != prev.Focus {
			logger.WithComponent("viewport").Info().
				Str("backend", s.Backend).
				Stringer("from", prev.Focus).
				Stringer("to", s.Focus).
				Msg("Focus state changed")
		}
		h.notifyListeners(s)
	}
}

// Run ticks at frameRate until ctx is done
func (h *Host) Run(ctx context.Context, frameRate int) {
	if frameRate <= 0 {
		frameRate = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Tick()
		}
	}
}

// Rebuild tears down the current manager and constructs a new one from
// opts, re-resolving the native window handle. The default manager fills
// in while the new backend starts, so Tick never waits on construction.
func (h *Host) Rebuild(opts Options) {
	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	log := logger.WithComponent("viewport")

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	old := h.manager
	h.manager = NewDefault(h.win, opts)
	h.opts = opts
	h.mu.Unlock()

	log.Info().Str("backend", old.Name()).Msg("Restarting viewport manager")
	if err := old.Close(); err != nil {
		log.Warn().Err(err).Str("backend", old.Name()).Msg("Failed to close viewport manager")
	}

	next := h.build(h.win, opts)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		next.Close()
		return
	}
	h.manager = next
	h.status = snapshot(next)
	s := h.status
	h.mu.Unlock()

	h.notifyListeners(s)
}

// Options returns the options the current manager was built with
func (h *Host) Options() Options {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.opts
}

// Status returns the latest snapshot
func (h *Host) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Subscribe adds a listener for status changes
func (h *Host) Subscribe() chan Status {
	ch := make(chan Status, 10)
	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener
func (h *Host) Unsubscribe(ch chan Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// notifyListeners notifies all listeners of a status change
func (h *Host) notifyListeners(s Status) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, listener := range h.listeners {
		select {
		case listener <- s:
		default:
			// Skip if channel is full
		}
	}
}

// Close tears down the manager and closes every listener channel
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for _, listener := range h.listeners {
		close(listener)
	}
	h.listeners = nil
	return h.manager.Close()
}
