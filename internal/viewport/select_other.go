//go:build !linux && !windows

package viewport

import (
	"fmt"
	"runtime"
)

func newNative(Window, Options) (Manager, error) {
	return nil, fmt.Errorf("no native overlay support on %s", runtime.GOOS)
}
