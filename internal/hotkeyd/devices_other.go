//go:build !linux

package hotkeyd

import (
	"fmt"
	"runtime"
)

// OpenKeyboards is only implemented on Linux
func OpenKeyboards() ([]KeySource, error) {
	return nil, fmt.Errorf("%w: raw input is not supported on %s", ErrNoInputDevices, runtime.GOOS)
}
