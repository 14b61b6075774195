//go:build !windows

package window

// NewLister connects to the X server. Wayland sessions have no global
// window list; XWayland clients are still visible through $DISPLAY.
func NewLister() (Lister, error) {
	return NewX11Lister()
}
