package window

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

// X11Lister implements Lister using X11
type X11Lister struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewX11Lister connects to the X server named by $DISPLAY
func NewX11Lister() (*X11Lister, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)

	return &X11Lister{
		conn:  conn,
		root:  screen.Root,
		atoms: make(map[string]xproto.Atom),
	}, nil
}

// Close closes the X11 connection
func (l *X11Lister) Close() error {
	l.conn.Close()
	return nil
}

// Name returns the lister name
func (l *X11Lister) Name() string {
	return "x11"
}

// ListWindows returns all windows using EWMH _NET_CLIENT_LIST with QueryTree fallback
func (l *X11Lister) ListWindows() ([]*Info, error) {
	log := logger.WithComponent("window")

	windows, err := l.listWindowsEWMH()
	if err == nil && len(windows) > 0 {
		log.Debug().Int("count", len(windows)).Msg("ListWindows: using EWMH _NET_CLIENT_LIST")
		return windows, nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("ListWindows: EWMH failed, falling back to QueryTree")
	}

	windows, err = l.listWindowsQueryTree()
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(windows)).Msg("ListWindows: using QueryTree fallback")
	return windows, nil
}

// listWindowsEWMH gets windows from _NET_CLIENT_LIST (EWMH standard)
func (l *X11Lister) listWindowsEWMH() ([]*Info, error) {
	clientListAtom, err := l.getAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST atom: %w", err)
	}

	reply, err := xproto.GetProperty(l.conn, false, l.root, clientListAtom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST is empty")
	}

	ids := decodeWindowIDs(reply.Value)
	return l.collect(ids), nil
}

// listWindowsQueryTree gets windows by querying root window children
func (l *X11Lister) listWindowsQueryTree() ([]*Info, error) {
	tree, err := xproto.QueryTree(l.conn, l.root).Reply()
	if err != nil {
		return nil, err
	}
	return l.collect(tree.Children), nil
}

func (l *X11Lister) collect(ids []xproto.Window) []*Info {
	windows := make([]*Info, 0, len(ids))
	for _, id := range ids {
		info := l.windowInfo(id)
		// Skip windows without titles or class (usually not user windows)
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows
}

// decodeWindowIDs parses a property holding an array of 32-bit window IDs
func decodeWindowIDs(value []byte) []xproto.Window {
	ids := make([]xproto.Window, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		ids = append(ids, xproto.Window(xgb.Get32(value[i:])))
	}
	return ids
}

// parseWMClass returns the class half of WM_CLASS ("instance\0class\0"),
// falling back to the instance.
func parseWMClass(raw string) string {
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}

func (l *X11Lister) windowInfo(win xproto.Window) *Info {
	info := &Info{ID: uint64(win)}

	if attrs, err := xproto.GetWindowAttributes(l.conn, win).Reply(); err == nil {
		info.Visible = attrs.MapState == xproto.MapStateViewable
	}

	if title, err := l.getProperty(win, "_NET_WM_NAME"); err == nil {
		info.Title = title
	}
	if info.Title == "" {
		if title, err := l.getProperty(win, "WM_NAME"); err == nil {
			info.Title = title
		}
	}

	if classRaw, err := l.getProperty(win, "WM_CLASS"); err == nil {
		info.Class = parseWMClass(classRaw)
	}

	if pidAtom, err := l.getAtom("_NET_WM_PID"); err == nil {
		pidReply, err := xproto.GetProperty(l.conn, false, win, pidAtom,
			xproto.AtomCardinal, 0, 1).Reply()
		if err == nil && len(pidReply.Value) >= 4 {
			info.PID = int(xgb.Get32(pidReply.Value))
		}
	}

	return info
}

// getAtom gets an atom ID by name, caching the result
func (l *X11Lister) getAtom(name string) (xproto.Atom, error) {
	if atom, ok := l.atoms[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(l.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	l.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// getProperty gets a property value as a string
func (l *X11Lister) getProperty(win xproto.Window, name string) (string, error) {
	atom, err := l.getAtom(name)
	if err != nil {
		return "", err
	}

	reply, err := xproto.GetProperty(l.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property")
	}
	return string(reply.Value), nil
}
