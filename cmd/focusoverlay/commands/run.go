package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/FocusOverlay/internal/api"
	"github.com/bryanchriswhite/FocusOverlay/internal/config"
	"github.com/bryanchriswhite/FocusOverlay/internal/display"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"github.com/bryanchriswhite/FocusOverlay/internal/viewport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the overlay focus manager",
	Long: `Run the viewport manager headless: pick the native backend for this
session, tick it at frame_rate and log every focus transition.

Edits to the config file are applied live. Changing disable_overlay, the
hotkeys or the target window restarts the backend.`,
	Example: `  # Run with the config file defaults
  focusoverlay run

  # Drive an existing overlay window on Windows
  focusoverlay run --hwnd 0x000A0B2C

  # Open a test overlay window on X11
  focusoverlay run --create-window

  # Serve the status API on a custom port
  focusoverlay run --port 9091

  # Start with debug logging
  focusoverlay run --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runHwnd         uint64
	runCreateWindow bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64Var(&runHwnd, "hwnd", 0, "native overlay window handle (HWND on Windows, window id on X11)")
	runCmd.Flags().BoolVar(&runCreateWindow, "create-window", false, "on X11, open a plain overlay window and drive it")
	runCmd.Flags().Int("port", 0, "serve the status API on this port")

	viper.BindPFlag("status_api.port", runCmd.Flags().Lookup("port"))
}

// hostHandle describes the overlay window for the detected windowing system
func hostHandle(id uint64, goos string, getenv func(string) string) viewport.Handle {
	if goos == "windows" {
		if id == 0 {
			return viewport.Handle{}
		}
		return viewport.Handle{Kind: viewport.HandleWin32, Window: uintptr(id)}
	}

	switch viewport.DetectDisplayServer(getenv) {
	case viewport.DisplayWayland:
		return viewport.Handle{Kind: viewport.HandleWayland, Window: uintptr(id)}
	case viewport.DisplayX11:
		return viewport.Handle{Kind: viewport.HandleXlib, Window: uintptr(id)}
	default:
		return viewport.Handle{}
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("viewport")

	if viper.IsSet("status_api.port") {
		if port := viper.GetInt("status_api.port"); port > 0 {
			cfg.StatusAPI.Enabled = true
			cfg.StatusAPI.Port = port
		}
	}

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Str("target", cfg.TargetWindowTitle).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var win viewport.Window = viewport.NewHeadlessWindow(hostHandle(runHwnd, runtime.GOOS, os.Getenv))
	var overlay *display.Window
	if runCreateWindow {
		if runtime.GOOS == "windows" || viewport.DetectDisplayServer(os.Getenv) != viewport.DisplayX11 {
			return fmt.Errorf("--create-window needs an X11 session")
		}
		overlay, err = display.New(display.Config{Width: 640, Height: 360, Title: "FocusOverlay"})
		if err != nil {
			return err
		}
		defer overlay.Close()
		win = overlay
	}

	host := viewport.NewHost(win, viewport.OptionsFromConfig(cfg))
	defer host.Close()

	if overlay != nil {
		updates := host.Subscribe()
		go renderLoop(overlay, host.Status(), updates)
	}

	current := cfg
	if err := configMgr.Watch(ctx, func(next *config.Config) {
		applyConfig(host, current, next)
		current = next
	}); err != nil {
		log.Warn().Err(err).Msg("Config hot reload unavailable")
	}

	var server *api.Server
	if cfg.StatusAPI.Enabled {
		server = api.NewServer(host)
		go func() {
			if err := server.Start(cfg.StatusAPI.Port); err != nil {
				logger.WithComponent("api").Error().Err(err).Msg("Status API stopped")
			}
		}()
	}

	status := host.Status()
	log.Info().
		Str("backend", status.Backend).
		Stringer("focus", status.Focus).
		Int("frame_rate", cfg.FrameRate).
		Msg("FocusOverlay is running, press Ctrl+C to stop")

	host.Run(ctx, cfg.FrameRate)

	log.Info().Msg("Shutting down gracefully...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop status API: %w", err)
		}
	}
	return nil
}

// renderLoop mirrors every published status onto the overlay window until
// the host closes the channel.
func renderLoop(overlay *display.Window, initial viewport.Status, updates <-chan viewport.Status) {
	log := logger.WithComponent("display")
	if err := overlay.Render(initial); err != nil {
		log.Warn().Err(err).Msg("Render failed")
	}
	for s := range updates {
		if err := overlay.Render(s); err != nil {
			log.Warn().Err(err).Msg("Render failed")
		}
	}
}

// applyConfig reacts to a reloaded config file. The backend is only rebuilt
// when the options it was built from actually changed.
func applyConfig(host *viewport.Host, prev, next *config.Config) {
	if next.LogLevel != prev.LogLevel || next.LogPretty != prev.LogPretty {
		logger.Init(next.LogLevel, next.LogPretty)
	}
	if next.FrameRate != prev.FrameRate {
		logger.WithComponent("viewport").Warn().
			Int("frame_rate", next.FrameRate).
			Msg("frame_rate changes apply on restart")
	}

	opts := viewport.OptionsFromConfig(next)
	if opts == host.Options() {
		return
	}
	host.Rebuild(opts)
}
