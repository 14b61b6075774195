package viewport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"golang.org/x/sys/unix"
)

const elevationNotice = "Wayland does not let applications see global keyboard shortcuts.\n\n" +
	"To make %s work, a small helper needs administrator rights to read " +
	"keyboard input. It drops those rights right after opening the keyboards " +
	"and only reports these shortcuts back.\n\n%s"

// elevationDenied latches a declined elevation prompt. The user is not
// asked again for the rest of the process.
var elevationDenied atomic.Bool

// WaylandManager receives hotkeys from the privileged helper daemon over a
// unix socket.
type WaylandManager struct {
	defaults
	tracker

	win    Window
	cancel context.CancelFunc
	// child is the elevation process; it exits once the daemon is detached
	child *exec.Cmd

	mu        sync.Mutex
	conn      net.Conn
	daemonPID atomic.Int32
}

// NewWayland asks the user for elevation and launches the hotkey daemon.
// It blocks while the dialog and the elevation prompt are open.
func NewWayland(win Window, opts Options) (*WaylandManager, error) {
	log := logger.WithComponent("wayland")

	h, err := win.Handle()
	if err != nil {
		return nil, fmt.Errorf("wayland: %w", err)
	}
	if h.Kind != HandleWayland {
		return nil, fmt.Errorf("wayland: %w: got %s", ErrHandleMismatch, h.Kind)
	}

	if elevationDenied.Load() {
		return nil, fmt.Errorf("wayland: %w earlier in this session", ErrElevationDenied)
	}

	win.SetDecorations(true)

	daemonPath, err := hotkey.DaemonPath(opts.Daemon.Binary)
	if err != nil {
		return nil, fmt.Errorf("wayland: %w", err)
	}
	if _, err := os.Stat(daemonPath); err != nil {
		return nil, fmt.Errorf("wayland: hotkey daemon not found: %w", err)
	}
	socketPath, err := hotkey.SocketPath(opts.Daemon.Socket)
	if err != nil {
		return nil, fmt.Errorf("wayland: %w", err)
	}

	portalNote := "Your desktop does not offer the GlobalShortcuts portal."
	if version, err := globalShortcutsVersion(); err != nil {
		log.Debug().Err(err).Msg("GlobalShortcuts portal query failed")
	} else {
		log.Info().Uint32("version", version).Msg("GlobalShortcuts portal available, using privileged daemon anyway")
		portalNote = fmt.Sprintf("Your desktop offers GlobalShortcuts portal v%d, which is not supported yet.", version)
	}
	showNotice(opts.Daemon.Dialog, fmt.Sprintf(elevationNotice, bindingSummary(opts.Bindings), portalNote))

	script := daemonScript(daemonPath, os.Getuid(), os.Getgid(), socketPath, opts.Bindings)
	var stdout bytes.Buffer
	child := exec.Command(opts.Daemon.Elevator, "sh", "-c", script)
	child.Stdout = &stdout
	log.Info().Str("elevator", opts.Daemon.Elevator).Str("daemon", daemonPath).Msg("Requesting elevation for hotkey daemon")

	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			elevationDenied.Store(true)
			return nil, fmt.Errorf("wayland: %w (exit code %d)", ErrElevationDenied, exitErr.ExitCode())
		}
		return nil, fmt.Errorf("wayland: failed to run %s: %w", opts.Daemon.Elevator, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &WaylandManager{
		win:    win,
		cancel: cancel,
		child:  child,
	}
	if pid, err := parseDaemonPID(stdout.Bytes()); err != nil {
		log.Warn().Err(err).Msg("Hotkey daemon pid unknown until it connects")
	} else {
		m.daemonPID.Store(int32(pid))
		log.Info().Int("pid", pid).Msg("Hotkey daemon started")
	}
	go m.client(ctx, socketPath, opts.Daemon.RetryInterval)

	return m, nil
}

// showNotice runs the dialog tool and waits for the user to dismiss it.
// Failures are logged only.
func showNotice(dialog, text string) {
	cmd := exec.Command(dialog, "--info", "--title=Global hotkeys", "--text="+text)
	if err := cmd.Run(); err != nil {
		logger.WithComponent("wayland").Warn().Err(err).Str("dialog", dialog).Msg("Could not show elevation notice")
	}
}

func bindingSummary(b hotkey.Bindings) string {
	return fmt.Sprintf("%s (focus), %s (hide) and %s (click-through)", b.Focus, b.Close, b.Visible)
}

// shellQuote wraps s in single quotes for sh
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// daemonScript builds the command the elevation helper runs. The daemon is
// detached with setsid and all of its stdio goes to /dev/null so the
// helper returns as soon as it is started. The script prints the daemon pid.
func daemonScript(daemon string, uid, gid int, socket string, bindings hotkey.Bindings) string {
	args := []string{
		"setsid", shellQuote(daemon),
		"--drop-uid", strconv.Itoa(uid),
		"--drop-gid", strconv.Itoa(gid),
		"--socket", shellQuote(socket),
	}
	for _, a := range bindings.Args() {
		args = append(args, shellQuote(a))
	}
	return strings.Join(args, " ") + " </dev/null >/dev/null 2>&1 & echo $!"
}

// parseDaemonPID reads the pid echoed by daemonScript
func parseDaemonPID(out []byte) (int, error) {
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return 0, fmt.Errorf("no daemon pid in elevation output")
	}
	pid, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid daemon pid %q", fields[len(fields)-1])
	}
	return pid, nil
}

// client connects to the daemon, retrying until it has created its socket,
// then turns each event line into a state change.
func (m *WaylandManager) client(ctx context.Context, socketPath string, retry time.Duration) {
	log := logger.WithComponent("hotkey-client")
	if retry <= 0 {
		retry = time.Second
	}

	conn, err := hotkey.DialRetry(ctx, socketPath, retry)
	if err != nil {
		return
	}

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.mu.Unlock()

	// the socket peer is authoritative for the pid Close signals
	if pid, err := peerPID(conn); err != nil {
		log.Warn().Err(err).Msg("Could not read daemon credentials")
	} else if launched := m.daemonPID.Swap(int32(pid)); launched != 0 && int(launched) != pid {
		log.Warn().Int32("launched", launched).Int("peer", pid).Msg("Socket peer is not the daemon that was launched")
	}
	log.Info().Str("socket", socketPath).Int32("daemon_pid", m.daemonPID.Load()).Msg("Connected to hotkey daemon")

	err = hotkey.ReadActions(conn, m.handle)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("Hotkey daemon connection failed")
		return
	}
	log.Warn().Msg("Hotkey daemon closed the connection")
}

// handle applies one daemon event: only focus makes the window take input
func (m *WaylandManager) handle(action hotkey.Action) {
	if err := m.win.SetCursorHittest(action == hotkey.ActionFocus); err != nil {
		logger.WithComponent("wayland").Warn().Err(err).Msg("Failed to set cursor hit-testing")
	}
	m.updates.Push(StateFor(action))
}

// peerPID reads the connected process id with SO_PEERCRED
func peerPID(conn net.Conn) (int, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return 0, fmt.Errorf("not a unix connection")
	}
	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("get raw conn: %w", err)
	}

	var (
		cred    *unix.Ucred
		credErr error
	)
	err = rawConn.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return 0, fmt.Errorf("control: %w", err)
	}
	if credErr != nil {
		return 0, fmt.Errorf("getsockopt: %w", credErr)
	}
	return int(cred.Pid), nil
}

// Update drains pending daemon events
func (m *WaylandManager) Update() { m.drain() }

// ShouldDrawGUI is false while the overlay is hidden
func (m *WaylandManager) ShouldDrawGUI() bool { return !m.FocusState().IsHidden() }

func (m *WaylandManager) Name() string { return "wayland" }

// Close stops the client and kills the daemon. Kill failures are logged.
func (m *WaylandManager) Close() error {
	log := logger.WithComponent("wayland")
	m.cancel()

	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.Unlock()

	if m.child != nil && m.child.Process != nil {
		if err := m.child.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warn().Err(err).Msg("Failed to kill elevation process")
		}
	}

	if pid := int(m.daemonPID.Load()); pid > 0 && pid != os.Getpid() {
		if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
			log.Warn().Err(err).Int("pid", pid).Msg("Failed to stop hotkey daemon")
		} else {
			log.Info().Int("pid", pid).Msg("Stopped hotkey daemon")
		}
	}
	return nil
}
