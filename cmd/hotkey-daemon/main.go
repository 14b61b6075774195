// Command hotkey-daemon reads raw keyboard devices as root, drops to an
// unprivileged user and forwards the overlay hotkeys over a unix socket.
// It is started by the overlay's Wayland backend through pkexec.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/hotkeyd"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

var (
	dropUID  int
	dropGID  int
	socket   string
	logLevel string
	focus    string
	hide     string
	visible  string
)

var rootCmd = &cobra.Command{
	Use:   "hotkey-daemon",
	Short: "Privileged global hotkey reader for the overlay on Wayland",
	Long: `hotkey-daemon opens every keyboard under /dev/input, immediately drops to
the invoking user's UID and GID, and writes "focus", "close" or "visible" to
every client of its unix socket when the matching hotkey is pressed.`,
	Example: `  # Usually launched by focusoverlay itself
  pkexec hotkey-daemon --drop-uid 1000 --drop-gid 1000

  # Custom bindings and socket
  sudo hotkey-daemon --focus Ctrl+F1 --socket /tmp/hotkeys.sock`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	defaults := hotkey.DefaultBindings()

	rootCmd.Flags().IntVar(&dropUID, "drop-uid", -1, "UID to drop to (default $SUDO_UID, then 1000)")
	rootCmd.Flags().IntVar(&dropGID, "drop-gid", -1, "GID to drop to (default $SUDO_GID, then 1000)")
	rootCmd.Flags().StringVar(&socket, "socket", hotkey.DefaultSocketName, "socket path, relative to the executable directory")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&focus, "focus", defaults.Focus.String(), "hotkey that focuses the overlay")
	rootCmd.Flags().StringVar(&hide, "close", defaults.Close.String(), "hotkey that hides the overlay")
	rootCmd.Flags().StringVar(&visible, "visible", defaults.Visible.String(), "hotkey that makes the overlay click-through")
}

func run(cmd *cobra.Command, args []string) error {
	logger.InitWriter(os.Stderr, logLevel, false)
	log := logger.WithComponent("hotkey-daemon")

	bindings, err := hotkey.ParseBindings(focus, hide, visible)
	if err != nil {
		return err
	}
	daemon, err := hotkeyd.New(bindings)
	if err != nil {
		return err
	}

	socketPath, err := hotkey.SocketPath(socket)
	if err != nil {
		return err
	}
	if err := hotkeyd.RemoveStaleSocket(socketPath); err != nil {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	sources, err := hotkeyd.OpenKeyboards()
	if err != nil {
		return err
	}

	creds := hotkeyd.ResolveCredentials(dropUID, dropGID, os.Getenv)
	if err := hotkeyd.DropPrivileges(creds); err != nil {
		for _, src := range sources {
			src.Close()
		}
		return fmt.Errorf("failed to drop privileges: %w", err)
	}
	log.Info().Int("uid", creds.UID).Int("gid", creds.GID).Msg("Dropped privileges")

	listener, err := hotkeyd.Listen(socketPath)
	if err != nil {
		for _, src := range sources {
			src.Close()
		}
		return err
	}
	defer os.Remove(socketPath)
	defer listener.Close()

	go func() {
		if err := daemon.Serve(listener); err != nil {
			log.Error().Err(err).Msg("Accept loop stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("socket", socketPath).
		Int("devices", len(sources)).
		Str("focus", bindings.Focus.String()).
		Str("close", bindings.Close.String()).
		Str("visible", bindings.Visible.String()).
		Msg("Hotkey daemon running")

	err = daemon.Run(ctx, sources)
	daemon.Close()
	if err != nil {
		return err
	}
	log.Info().Msg("Shutting down")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
