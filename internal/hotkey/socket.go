package hotkey

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultSocketName is the daemon socket file created next to the executable
	DefaultSocketName = "hotkeys.sock"
	// DefaultDaemonName is the daemon executable shipped next to the overlay
	DefaultDaemonName = "hotkey-daemon"
)

// Dir returns the directory of the running executable
func Dir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// SocketPath resolves the socket name next to the executable.
// Absolute names are returned unchanged.
func SocketPath(name string) (string, error) {
	return besideExecutable(name, DefaultSocketName)
}

// DaemonPath resolves the daemon binary name next to the executable.
// Absolute names are returned unchanged.
func DaemonPath(name string) (string, error) {
	return besideExecutable(name, DefaultDaemonName)
}

func besideExecutable(name, fallback string) (string, error) {
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// DialRetry connects to the daemon socket, retrying every interval until the
// daemon has created it or ctx is cancelled. There is no attempt limit: a
// daemon that never starts just keeps the caller sleeping.
func DialRetry(ctx context.Context, path string, interval time.Duration) (net.Conn, error) {
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
