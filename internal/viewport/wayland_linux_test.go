package viewport

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDaemonScript(t *testing.T) {
	script := daemonScript("/opt/focus overlay/hotkey-daemon", 1000, 1001, "/opt/focus overlay/hotkeys.sock", hotkey.DefaultBindings())

	assert.True(t, strings.HasPrefix(script, "setsid '/opt/focus overlay/hotkey-daemon' "))
	assert.Contains(t, script, "--drop-uid 1000 --drop-gid 1001")
	assert.Contains(t, script, "--socket '/opt/focus overlay/hotkeys.sock'")
	assert.Contains(t, script, "'--focus' 'Alt+F' '--close' 'Alt+C' '--visible' 'Alt+V'")
	assert.True(t, strings.HasSuffix(script, " </dev/null >/dev/null 2>&1 & echo $!"))
}

func TestParseDaemonPID(t *testing.T) {
	pid, err := parseDaemonPID([]byte("4242\n"))
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	pid, err = parseDaemonPID([]byte("polkit noise\n77\n"))
	require.NoError(t, err)
	assert.Equal(t, 77, pid)

	for _, out := range []string{"", "\n", "abc", "0", "-3"} {
		_, err := parseDaemonPID([]byte(out))
		assert.Error(t, err, out)
	}
}

// writeScript creates an executable shell script in dir
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// waylandTestOptions points the backend at scripts in a temp dir and keeps
// the portal query off the real session bus.
func waylandTestOptions(t *testing.T, dir, elevatorBody string) Options {
	t.Helper()
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path="+filepath.Join(dir, "no-bus"))

	opts := DefaultOptions()
	opts.Daemon.Binary = writeScript(t, dir, "hotkey-daemon", "exec sleep 30")
	opts.Daemon.Socket = filepath.Join(dir, "hotkeys.sock")
	opts.Daemon.Elevator = writeScript(t, dir, "elevator", elevatorBody)
	opts.Daemon.Dialog = "true"
	opts.Daemon.RetryInterval = 10 * time.Millisecond
	return opts
}

func TestDeniedElevationIsNotRetried(t *testing.T) {
	elevationDenied.Store(false)
	t.Cleanup(func() { elevationDenied.Store(false) })
	t.Setenv("XDG_SESSION_TYPE", "wayland")

	dir := t.TempDir()
	prompts := filepath.Join(dir, "prompts")
	opts := waylandTestOptions(t, dir, "echo prompt >> '"+prompts+"'\nexit 126")

	win := NewHeadlessWindow(Handle{Kind: HandleWayland, Window: 1})
	host := NewHost(win, opts)
	defer host.Close()
	assert.Equal(t, "default", host.Status().Backend)

	opts.TargetTitle = "another game"
	host.Rebuild(opts)
	assert.Equal(t, "default", host.Status().Backend)

	_, err := NewWayland(win, opts)
	assert.ErrorIs(t, err, ErrElevationDenied)

	data, err := os.ReadFile(prompts)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "prompt"), "user is asked once per run")
}

func TestCloseStopsDaemonBeforeItConnects(t *testing.T) {
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
	elevationDenied.Store(false)
	t.Cleanup(func() { elevationDenied.Store(false) })

	dir := t.TempDir()
	opts := waylandTestOptions(t, dir, `exec "$@"`)

	m, err := NewWayland(NewHeadlessWindow(Handle{Kind: HandleWayland, Window: 1}), opts)
	require.NoError(t, err)

	pid := int(m.daemonPID.Load())
	require.Positive(t, pid, "pid comes from the elevation output")
	require.NotEqual(t, os.Getpid(), pid)
	assert.True(t, processRunning(pid))

	require.NoError(t, m.Close())
	assert.Eventually(t, func() bool { return !processRunning(pid) },
		5*time.Second, 20*time.Millisecond, "daemon survived Close")
}

// processRunning reports whether pid exists and is not a zombie
func processRunning(pid int) bool {
	if err := unix.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	return !strings.Contains(string(stat), ") Z ")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestNewWaylandRejectsOtherHandles(t *testing.T) {
	_, err := NewWayland(NewHeadlessWindow(Handle{Kind: HandleXlib, Window: 1}), DefaultOptions())
	assert.ErrorIs(t, err, ErrHandleMismatch)

	_, err = NewWayland(NewHeadlessWindow(Handle{}), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoNativeHandle)
}

func TestNewWaylandMissingDaemon(t *testing.T) {
	opts := DefaultOptions()
	opts.Daemon.Binary = filepath.Join(t.TempDir(), "missing-daemon")

	_, err := NewWayland(NewHeadlessWindow(Handle{Kind: HandleWayland, Window: 1}), opts)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWaylandClientTranslatesEvents(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "hotkeys.sock")
	win := NewHeadlessWindow(Handle{Kind: HandleWayland, Window: 1})

	ctx, cancel := context.WithCancel(context.Background())
	m := &WaylandManager{win: win, cancel: cancel}
	defer m.Close()

	// the client starts before the daemon socket exists
	go m.client(ctx, socketPath, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	l, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer l.Close()

	conn, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return int(m.daemonPID.Load()) == os.Getpid()
	}, 2*time.Second, 10*time.Millisecond, "daemon pid comes from the socket peer")

	steps := []struct {
		line    string
		state   FocusState
		hittest bool
		draw    bool
	}{
		{"close\n", Hidden, false, false},
		{"garbage\n", Hidden, false, false},
		{"visible\n", Unfocused, false, true},
		{"focus\n", Focused, true, true},
	}

	for _, step := range steps {
		_, err := conn.Write([]byte(step.line))
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			m.Update()
			return m.FocusState() == step.state && win.CursorHittest() == step.hittest
		}, 2*time.Second, 5*time.Millisecond, step.line)
		assert.Equal(t, step.draw, m.ShouldDrawGUI(), step.line)
	}
}

func TestWaylandCloseStopsDialLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &WaylandManager{win: NewHeadlessWindow(Handle{Kind: HandleWayland}), cancel: cancel}

	done := make(chan struct{})
	go func() {
		m.client(ctx, filepath.Join(t.TempDir(), "never.sock"), 5*time.Millisecond)
		close(done)
	}()

	require.NoError(t, m.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client kept dialing after Close")
	}
}
