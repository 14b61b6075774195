package viewport

func newNative(win Window, opts Options) (Manager, error) {
	m, err := NewWin32(win, opts)
	if err != nil {
		return nil, err
	}
	return m, nil
}
