package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print events from a running hotkey daemon",
	Long: `Connect to the hotkey daemon socket and print every action it sends.

Useful to check that the daemon sees the keyboard without starting the
overlay. Waits for the socket to appear if the daemon is still starting.`,
	Example: `  # Use the socket configured in daemon.socket
  focusoverlay listen

  # Use an explicit socket
  focusoverlay listen --socket /tmp/hotkeys.sock`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

var listenSocket string

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVarP(&listenSocket, "socket", "s", "", "daemon socket path (default is daemon.socket next to the executable)")
}

func runListen(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := cfg.Daemon.Socket
	if listenSocket != "" {
		name = listenSocket
	}
	path, err := hotkey.SocketPath(name)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithComponent("hotkey-client").Info().Str("socket", path).Msg("Waiting for hotkey daemon")
	conn, err := hotkey.DialRetry(ctx, path, time.Duration(cfg.Daemon.ConnectRetryMs)*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	err = hotkey.ReadActions(conn, func(a hotkey.Action) {
		fmt.Println(a.Token())
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("connection lost: %w", err)
	}
	fmt.Fprintln(os.Stderr, "daemon closed the connection")
	return nil
}
