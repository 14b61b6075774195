package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/FocusOverlay/internal/config"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "focusoverlay",
		Short: "FocusOverlay - Global hotkeys and window following for a game overlay",
		Long: `FocusOverlay drives an always-on-top overlay window from global hotkeys.

Features:
  • Alt+F focuses the overlay, Alt+C hides it, Alt+V makes it click-through
  • Native hotkeys on Windows (RegisterHotKey) and X11 (XGrabKey)
  • Privileged hotkey daemon for Wayland sessions
  • Follows the game window across monitors on Windows
  • Configurable bindings with live reload
  • Read-only status API`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/focusoverlay/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config manager and initializes logging from it,
// honoring a --log-level override without persisting it.
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			cfg.LogLevel = level
		}
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return configMgr, cfg, nil
}
