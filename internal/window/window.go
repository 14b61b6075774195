// Package window enumerates top-level windows and matches them against the
// configured target title.
package window

// Info describes a top-level window
type Info struct {
	ID      uint64 `json:"id"`
	Title   string `json:"title"`
	Class   string `json:"class"`
	PID     int    `json:"pid"`
	Visible bool   `json:"visible"`
}

// Lister enumerates top-level windows on the current display server
type Lister interface {
	// ListWindows returns the top-level windows that have a title or class
	ListWindows() ([]*Info, error)

	// Close releases the display connection
	Close() error

	// Name returns the lister name (e.g., "x11", "win32")
	Name() string
}

// Find returns the first visible window whose title matches m
func Find(windows []*Info, m Matcher) *Info {
	for _, w := range windows {
		if w.Visible && m.Match(w.Title) {
			return w
		}
	}
	return nil
}
