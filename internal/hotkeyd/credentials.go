package hotkeyd

import (
	"strconv"

	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

// FallbackID is used when neither a flag nor SUDO_UID/SUDO_GID is available
const FallbackID = 1000

// Credentials are the unprivileged IDs the daemon drops to
type Credentials struct {
	UID int
	GID int
}

// ResolveCredentials picks the drop target. Negative flag values mean unset
// and fall back to SUDO_UID/SUDO_GID, then to FallbackID with a warning.
func ResolveCredentials(uid, gid int, getenv func(string) string) Credentials {
	return Credentials{
		UID: resolveID("uid", uid, getenv("SUDO_UID")),
		GID: resolveID("gid", gid, getenv("SUDO_GID")),
	}
}

func resolveID(name string, flag int, env string) int {
	if flag >= 0 {
		return flag
	}
	if env != "" {
		id, err := strconv.Atoi(env)
		if err == nil && id >= 0 {
			return id
		}
		logger.WithComponent("hotkey-daemon").Warn().Str(name, env).Msg("Ignoring malformed sudo id")
	}
	logger.WithComponent("hotkey-daemon").Warn().
		Int(name, FallbackID).
		Msgf("No %s given, falling back to default", name)
	return FallbackID
}
