package viewport

import (
	"fmt"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"github.com/bryanchriswhite/FocusOverlay/internal/win32"
)

// applyAction performs the window side of a hotkey. Visible also hands the
// keyboard back to the target window when it is still alive.
func applyAction(sys windowSystem, overlay, target uintptr, action hotkey.Action) {
	log := logger.WithComponent("win32")

	switch action {
	case hotkey.ActionFocus:
		sys.ShowWindow(overlay, win32.SWShowMaximized)
		sys.SetForegroundWindow(overlay)
		style := sys.ExStyle(overlay) &^ win32.WSExTransparent
		if err := sys.SetExStyle(overlay, style); err != nil {
			log.Warn().Err(err).Msg("Failed to disable click-through")
		}

	case hotkey.ActionClose:
		sys.ShowWindow(overlay, win32.SWHide)

	case hotkey.ActionVisible:
		sys.ShowWindow(overlay, win32.SWShowMaximized)
		sys.SetForegroundWindow(overlay)
		style := sys.ExStyle(overlay) | win32.WSExLayered | win32.WSExTransparent
		if err := sys.SetExStyle(overlay, style); err != nil {
			log.Warn().Err(err).Msg("Failed to enable click-through")
		}
		// drop keyboard focus from any overlay text field
		sys.SetForegroundWindow(sys.DesktopWindow())
		if target != 0 && sys.IsWindow(target) {
			sys.ShowWindow(target, win32.SWShow)
			sys.SetForegroundWindow(target)
		}
	}
}

// registerHotkeys registers every binding with ids 1..n in Actions order.
// It is all or nothing: on the first refusal the hotkeys already
// registered are released and the error is returned.
func registerHotkeys(register func(id int32, b hotkey.Binding) error, unregister func(id int32), bindings hotkey.Bindings) ([]int32, error) {
	log := logger.WithComponent("win32")

	var registered []int32
	for i, action := range hotkey.Actions {
		id := int32(i + 1)
		b := bindings.For(action)
		if err := register(id, b); err != nil {
			for _, done := range registered {
				unregister(done)
			}
			return nil, fmt.Errorf("register %s for %s: %w", b, action, err)
		}
		registered = append(registered, id)
		log.Info().Str("binding", b.String()).Stringer("action", action).Msg("Registered hotkey")
	}
	return registered, nil
}
