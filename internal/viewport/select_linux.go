package viewport

import "os"

func newNative(win Window, opts Options) (Manager, error) {
	if DetectDisplayServer(os.Getenv) == DisplayWayland {
		m, err := NewWayland(win, opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	m, err := NewX11(win, opts)
	if err != nil {
		return nil, err
	}
	return m, nil
}
