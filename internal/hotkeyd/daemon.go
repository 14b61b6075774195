// Package hotkeyd implements the privileged hotkey daemon used on Wayland.
// It reads raw keyboard devices, matches the configured chords and fans the
// resulting action tokens out to every connected socket client.
package hotkeyd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

const (
	// PollInterval is the sleep between device polling passes
	PollInterval = 10 * time.Millisecond

	writeTimeout = time.Second
)

var (
	// ErrNoInputDevices is returned when no keyboard device could be opened
	ErrNoInputDevices = errors.New("no usable input devices")
	// ErrAllDevicesLost is returned when every device failed while polling
	ErrAllDevicesLost = errors.New("all input devices lost")
)

// KeySource is a non-blocking source of key events, usually an evdev node
type KeySource interface {
	// ReadEvents returns whatever events are pending without blocking.
	// An empty result with a nil error means nothing was pending.
	ReadEvents() ([]KeyEvent, error)
	Name() string
	Close() error
}

type chord struct {
	code uint16
	mods hotkey.Modifiers
}

// Daemon tracks connected clients and the held modifier keys
type Daemon struct {
	chords   map[chord]hotkey.Action
	held     map[uint16]bool
	interval time.Duration

	mu      sync.Mutex
	clients []net.Conn
}

// New creates a daemon matching the given bindings
func New(bindings hotkey.Bindings) (*Daemon, error) {
	d := &Daemon{
		chords:   make(map[chord]hotkey.Action),
		held:     make(map[uint16]bool),
		interval: PollInterval,
	}
	for _, action := range hotkey.Actions {
		b := bindings.For(action)
		code, ok := keyCode(b.Key)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", action, hotkey.ErrUnknownKey, b.Key)
		}
		d.chords[chord{code: code, mods: b.Mods}] = action
	}
	return d, nil
}

// AddClient registers a connection to receive future actions
func (d *Daemon) AddClient(conn net.Conn) {
	d.mu.Lock()
	d.clients = append(d.clients, conn)
	n := len(d.clients)
	d.mu.Unlock()

	logger.WithComponent("hotkey-daemon").Info().
		Str("remote", conn.RemoteAddr().String()).
		Int("clients", n).
		Msg("Client connected")
}

// Clients returns the number of connected clients
func (d *Daemon) Clients() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clients)
}

// Notify writes the action to every client. Clients whose write fails are
// closed and removed in the same pass.
func (d *Daemon) Notify(action hotkey.Action) {
	log := logger.WithComponent("hotkey-daemon")

	d.mu.Lock()
	defer d.mu.Unlock()

	alive := d.clients[:0]
	for _, conn := range d.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := hotkey.WriteAction(conn, action); err != nil {
			log.Info().Err(err).Msg("Dropping client")
			conn.Close()
			continue
		}
		alive = append(alive, conn)
	}
	for i := len(alive); i < len(d.clients); i++ {
		d.clients[i] = nil
	}
	d.clients = alive

	log.Debug().Str("action", action.String()).Int("clients", len(alive)).Msg("Action sent")
}

// Serve accepts clients until the listener is closed
func (d *Daemon) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		d.AddClient(conn)
	}
}

// Close disconnects every client
func (d *Daemon) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conn := range d.clients {
		conn.Close()
	}
	d.clients = nil
}

// Run polls the sources until ctx is done. A source that fails is closed and
// dropped; once none are left Run returns ErrAllDevicesLost.
func (d *Daemon) Run(ctx context.Context, sources []KeySource) error {
	log := logger.WithComponent("hotkey-daemon")
	if len(sources) == 0 {
		return ErrNoInputDevices
	}
	sources = append([]KeySource(nil), sources...)

	defer func() {
		for _, src := range sources {
			src.Close()
		}
	}()

	for {
		for i := 0; i < len(sources); {
			events, err := sources[i].ReadEvents()
			if err != nil {
				log.Warn().Err(err).Str("device", sources[i].Name()).Msg("Input device failed, dropping it")
				sources[i].Close()
				sources = append(sources[:i], sources[i+1:]...)
				continue
			}
			for _, ev := range events {
				d.HandleKey(ev)
			}
			i++
		}

		if len(sources) == 0 {
			return ErrAllDevicesLost
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.interval):
		}
	}
}

// HandleKey updates modifier state and notifies clients on a bound key press.
// Auto-repeat events never trigger an action.
func (d *Daemon) HandleKey(ev KeyEvent) {
	if _, ok := modifierKeys[ev.Code]; ok {
		switch ev.Value {
		case keyPress, keyRepeat:
			d.held[ev.Code] = true
		case keyRelease:
			delete(d.held, ev.Code)
		}
		return
	}

	if ev.Value != keyPress {
		return
	}
	if action, ok := d.chords[chord{code: ev.Code, mods: d.mods()}]; ok {
		d.Notify(action)
	}
}

func (d *Daemon) mods() hotkey.Modifiers {
	var mods hotkey.Modifiers
	for code := range d.held {
		mods |= modifierKeys[code]
	}
	return mods
}
