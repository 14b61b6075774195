package viewport

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Portal D-Bus constants
const (
	portalService        = "org.freedesktop.portal.Desktop"
	portalPath           = "/org/freedesktop/portal/desktop"
	globalShortcutsIface = "org.freedesktop.portal.GlobalShortcuts"
)

// globalShortcutsVersion returns the version of the desktop portal's
// GlobalShortcuts interface, or an error when the portal lacks it.
func globalShortcutsVersion() (uint32, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return 0, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(portalService, dbus.ObjectPath(portalPath))
	v, err := obj.GetProperty(globalShortcutsIface + ".version")
	if err != nil {
		return 0, fmt.Errorf("GlobalShortcuts portal unavailable: %w", err)
	}

	version, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("unexpected GlobalShortcuts version type %T", v.Value())
	}
	return version, nil
}
