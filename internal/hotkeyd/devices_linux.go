//go:build linux

package hotkeyd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

// DevicePattern matches the evdev nodes scanned at startup
const DevicePattern = "/dev/input/event*"

var timevalSize = int(unsafe.Sizeof(unix.Timeval{}))

// eviocgbit builds EVIOCGBIT(ev, size): _IOC(_IOC_READ, 'E', 0x20+ev, size)
func eviocgbit(ev, size uintptr) uintptr {
	const iocRead = 2
	return iocRead<<30 | size<<16 | 'E'<<8 | (0x20 + ev)
}

// Device is a non-blocking evdev keyboard
type Device struct {
	path string
	fd   int
	buf  []byte
}

// OpenDevice opens path non-blocking. It fails if the device reports no keys.
func OpenDevice(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblocking %s: %w", path, err)
	}

	bitmap := make([]byte, keyMax/8+1)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		eviocgbit(evKey, uintptr(len(bitmap))), uintptr(unsafe.Pointer(&bitmap[0])))
	if errno != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("query keys %s: %w", path, errno)
	}
	if !hasKeys(bitmap) {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: no key capabilities", path)
	}

	return &Device{
		path: path,
		fd:   fd,
		buf:  make([]byte, 64*(timevalSize+8)),
	}, nil
}

// ReadEvents drains pending key events
func (d *Device) ReadEvents() ([]KeyEvent, error) {
	var events []KeyEvent
	for {
		n, err := unix.Read(d.fd, d.buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				return events, nil
			}
			return events, fmt.Errorf("read %s: %w", d.path, err)
		}
		if n <= 0 {
			return events, nil
		}
		events = append(events, decodeEvents(d.buf[:n], timevalSize)...)
		if n < len(d.buf) {
			return events, nil
		}
	}
}

// Name returns the device path
func (d *Device) Name() string {
	return d.path
}

// Close releases the file descriptor
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// OpenKeyboards opens every device under /dev/input that exposes keys.
// Devices that fail to open are skipped with a debug log.
func OpenKeyboards() ([]KeySource, error) {
	return openMatching(DevicePattern)
}

func openMatching(pattern string) ([]KeySource, error) {
	log := logger.WithComponent("hotkey-daemon")

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var sources []KeySource
	for _, path := range paths {
		dev, err := OpenDevice(path)
		if err != nil {
			log.Debug().Err(err).Msg("Skipping input device")
			continue
		}
		log.Info().Str("device", path).Msg("Opened keyboard device")
		sources = append(sources, dev)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w matching %s", ErrNoInputDevices, pattern)
	}
	return sources, nil
}
