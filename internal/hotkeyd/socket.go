package hotkeyd

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
)

// SocketMode lets the unprivileged overlay connect to the daemon socket
const SocketMode = 0o666

// RemoveStaleSocket deletes a socket left behind by a previous daemon.
// It refuses to remove anything that is not a socket.
func RemoveStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	return os.Remove(path)
}

// Listen binds the daemon socket and opens its permissions
func Listen(path string) (net.Listener, error) {
	if err := RemoveStaleSocket(path); err != nil {
		return nil, fmt.Errorf("failed to clean up socket: %w", err)
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, SocketMode); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return l, nil
}
