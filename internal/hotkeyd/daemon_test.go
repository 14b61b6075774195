package hotkeyd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
)

// recordingConn captures writes; only the methods Notify uses are implemented
type recordingConn struct {
	net.Conn
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (c *recordingConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.buf.Write(p)
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordingConn) RemoteAddr() net.Addr { return &net.UnixAddr{Name: "test", Net: "unix"} }

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func newDaemon(t *testing.T) *Daemon {
	t.Helper()
	d, err := New(hotkey.DefaultBindings())
	require.NoError(t, err)
	d.interval = time.Millisecond
	return d
}

func TestNotifyFansOutToEveryClient(t *testing.T) {
	d := newDaemon(t)

	var lines [2]string
	var wg sync.WaitGroup
	for i := range lines {
		server, client := net.Pipe()
		defer client.Close()
		d.AddClient(server)

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			line, _ := bufio.NewReader(client).ReadString('\n')
			lines[i] = line
		}(i)
	}

	d.Notify(hotkey.ActionFocus)
	wg.Wait()

	assert.Equal(t, [2]string{"focus\n", "focus\n"}, lines)
	assert.Equal(t, 2, d.Clients())
}

func TestNotifyDropsDeadClientSamePass(t *testing.T) {
	d := newDaemon(t)

	dead, peer := net.Pipe()
	peer.Close()
	d.AddClient(dead)

	live := &recordingConn{}
	d.AddClient(live)

	d.Notify(hotkey.ActionClose)

	assert.Equal(t, "close\n", live.String())
	assert.Equal(t, 1, d.Clients())

	d.Notify(hotkey.ActionVisible)
	assert.Equal(t, "close\nvisible\n", live.String())
	assert.Equal(t, 1, d.Clients())
}

func TestCloseDisconnectsClients(t *testing.T) {
	d := newDaemon(t)
	conn := &recordingConn{}
	d.AddClient(conn)

	d.Close()
	assert.Equal(t, 0, d.Clients())
	assert.True(t, conn.closed)
}

func TestHandleKeyMatchesChords(t *testing.T) {
	d := newDaemon(t)
	conn := &recordingConn{}
	d.AddClient(conn)

	events := []KeyEvent{
		{Code: keyLeftAlt, Value: keyPress},
		{Code: 33, Value: keyPress}, // F
		{Code: 33, Value: keyRelease},
		{Code: keyLeftAlt, Value: keyRelease},
		{Code: 33, Value: keyPress}, // no modifier
		{Code: 33, Value: keyRelease},
		{Code: keyRightAlt, Value: keyPress},
		{Code: 46, Value: keyPress}, // C
		{Code: 46, Value: keyRepeat},
		{Code: 46, Value: keyRelease},
		{Code: keyLeftCtrl, Value: keyPress},
		{Code: 47, Value: keyPress}, // Ctrl+Alt+V is not bound
		{Code: 47, Value: keyRelease},
		{Code: keyLeftCtrl, Value: keyRelease},
		{Code: 47, Value: keyPress}, // Alt+V
	}
	for _, ev := range events {
		d.HandleKey(ev)
	}

	assert.Equal(t, "focus\nclose\nvisible\n", conn.String())
}

func TestHandleKeyBothAltKeys(t *testing.T) {
	d := newDaemon(t)
	conn := &recordingConn{}
	d.AddClient(conn)

	d.HandleKey(KeyEvent{Code: keyLeftAlt, Value: keyPress})
	d.HandleKey(KeyEvent{Code: keyRightAlt, Value: keyPress})
	d.HandleKey(KeyEvent{Code: keyLeftAlt, Value: keyRelease})
	d.HandleKey(KeyEvent{Code: 33, Value: keyPress})

	assert.Equal(t, "focus\n", conn.String())
}

func TestNewCustomBindings(t *testing.T) {
	bindings, err := hotkey.ParseBindings("Ctrl+F5", "Num0", "Super+1")
	require.NoError(t, err)
	d, err := New(bindings)
	require.NoError(t, err)

	conn := &recordingConn{}
	d.AddClient(conn)

	d.HandleKey(KeyEvent{Code: 82, Value: keyPress}) // KP0
	d.HandleKey(KeyEvent{Code: keyLeftMeta, Value: keyPress})
	d.HandleKey(KeyEvent{Code: 2, Value: keyPress}) // 1
	d.HandleKey(KeyEvent{Code: keyLeftMeta, Value: keyRelease})
	d.HandleKey(KeyEvent{Code: keyRightCtrl, Value: keyPress})
	d.HandleKey(KeyEvent{Code: 63, Value: keyPress}) // F5

	assert.Equal(t, "close\nvisible\nfocus\n", conn.String())
}

type fakeSource struct {
	batches [][]KeyEvent
	err     error
	closed  bool
}

func (s *fakeSource) ReadEvents() ([]KeyEvent, error) {
	if len(s.batches) == 0 {
		return nil, s.err
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func TestRunDropsFailedSources(t *testing.T) {
	d := newDaemon(t)
	conn := &recordingConn{}
	d.AddClient(conn)

	gone := errors.New("device unplugged")
	keyboard := &fakeSource{
		batches: [][]KeyEvent{
			{{Code: keyLeftAlt, Value: keyPress}},
			nil,
			{{Code: 47, Value: keyPress}},
		},
		err: gone,
	}
	broken := &fakeSource{err: gone}

	err := d.Run(context.Background(), []KeySource{broken, keyboard})
	assert.ErrorIs(t, err, ErrAllDevicesLost)
	assert.Equal(t, "visible\n", conn.String())
	assert.True(t, keyboard.closed)
	assert.True(t, broken.closed)
}

type idleSource struct{ fakeSource }

func (s *idleSource) ReadEvents() ([]KeyEvent, error) { return nil, nil }

func TestRunStopsOnCancel(t *testing.T) {
	d := newDaemon(t)
	src := &idleSource{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, d.Run(ctx, []KeySource{src}))
	assert.True(t, src.closed)
}

func TestRunWithoutSources(t *testing.T) {
	d := newDaemon(t)
	assert.ErrorIs(t, d.Run(context.Background(), nil), ErrNoInputDevices)
}

func TestKeyCode(t *testing.T) {
	tests := []struct {
		key  string
		code uint16
	}{
		{"A", 30}, {"F", 33}, {"C", 46}, {"V", 47}, {"Q", 16}, {"Z", 44}, {"M", 50},
		{"0", 11}, {"1", 2}, {"9", 10},
		{"F1", 59}, {"F10", 68}, {"F11", 87}, {"F12", 88},
		{"Num0", 82}, {"Num1", 79}, {"Num5", 76}, {"Num9", 73},
	}
	for _, tt := range tests {
		b, err := hotkey.ParseBinding(tt.key)
		require.NoError(t, err, tt.key)
		code, ok := keyCode(b.Key)
		require.True(t, ok, tt.key)
		assert.Equal(t, tt.code, code, tt.key)
	}

	_, ok := keyCode(hotkey.Key{Kind: hotkey.KeyFunction, Value: 13})
	assert.False(t, ok)
}

func TestDecodeEvents(t *testing.T) {
	const tv = 16
	record := func(typ, code uint16, value int32) []byte {
		b := make([]byte, tv+8)
		binary.NativeEndian.PutUint16(b[tv:], typ)
		binary.NativeEndian.PutUint16(b[tv+2:], code)
		binary.NativeEndian.PutUint32(b[tv+4:], uint32(value))
		return b
	}

	var buf []byte
	buf = append(buf, record(0x04, 4, 458755)...) // EV_MSC scan code
	buf = append(buf, record(evKey, keyLeftAlt, keyPress)...)
	buf = append(buf, record(0x00, 0, 0)...) // EV_SYN
	buf = append(buf, record(evKey, 33, keyRelease)...)
	buf = append(buf, 1, 2, 3) // truncated tail

	assert.Equal(t, []KeyEvent{
		{Code: keyLeftAlt, Value: keyPress},
		{Code: 33, Value: keyRelease},
	}, decodeEvents(buf, tv))
}

func TestHasKeys(t *testing.T) {
	assert.False(t, hasKeys(make([]byte, 8)))
	assert.True(t, hasKeys([]byte{0, 0, 0x10}))
}

func TestResolveCredentials(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	tests := []struct {
		name     string
		uid, gid int
		vars     map[string]string
		want     Credentials
	}{
		{"flags", 1001, 1002, map[string]string{"SUDO_UID": "5"}, Credentials{UID: 1001, GID: 1002}},
		{"sudo", -1, -1, map[string]string{"SUDO_UID": "1234", "SUDO_GID": "100"}, Credentials{UID: 1234, GID: 100}},
		{"mixed", 0, -1, map[string]string{"SUDO_GID": "27"}, Credentials{UID: 0, GID: 27}},
		{"fallback", -1, -1, nil, Credentials{UID: FallbackID, GID: FallbackID}},
		{"malformed", -1, -1, map[string]string{"SUDO_UID": "root"}, Credentials{UID: FallbackID, GID: FallbackID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveCredentials(tt.uid, tt.gid, env(tt.vars)))
		})
	}
}

func TestRemoveStaleSocketRefusesRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotkeys.sock")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	assert.Error(t, RemoveStaleSocket(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)

	assert.NoError(t, RemoveStaleSocket(filepath.Join(t.TempDir(), "missing.sock")))
}

func TestServeDeliversToSocketClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotkeys.sock")

	stale, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	require.NoError(t, err)
	stale.SetUnlinkOnClose(false)
	stale.Close()

	l, err := Listen(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(SocketMode), info.Mode().Perm())

	d := newDaemon(t)
	served := make(chan error, 1)
	go func() { served <- d.Serve(l) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := hotkey.DialRetry(ctx, path, 10*time.Millisecond)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return d.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	d.Notify(hotkey.ActionVisible)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "visible\n", line)

	require.NoError(t, l.Close())
	assert.NoError(t, <-served)
	d.Close()
}
