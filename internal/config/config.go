package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/FocusOverlay/internal/hotkey"
	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned by Set and Lookup for keys not in Keys()
var ErrUnknownKey = errors.New("unknown config key")

// Config represents the application configuration
type Config struct {
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogPretty bool   `json:"log_pretty" yaml:"log_pretty"`

	// DisableOverlay forces the plain window manager even when a native
	// backend is available. Changing it restarts the viewport.
	DisableOverlay              bool `json:"disable_overlay" yaml:"disable_overlay"`
	TransparentBackgroundAlways bool `json:"transparent_background_always" yaml:"transparent_background_always"`

	FrameRate         int    `json:"frame_rate" yaml:"frame_rate"`
	TargetWindowTitle string `json:"target_window_title" yaml:"target_window_title"`
	FollowIntervalMs  int    `json:"follow_interval_ms" yaml:"follow_interval_ms"`

	Hotkeys   HotkeyConfig    `json:"hotkeys" yaml:"hotkeys"`
	Daemon    DaemonConfig    `json:"daemon" yaml:"daemon"`
	StatusAPI StatusAPIConfig `json:"status_api" yaml:"status_api"`
}

// HotkeyConfig holds the key binding for each overlay action
type HotkeyConfig struct {
	Focus   string `json:"focus" yaml:"focus"`
	Close   string `json:"close" yaml:"close"`
	Visible string `json:"visible" yaml:"visible"`
}

// DaemonConfig controls how the privileged hotkey helper is launched on Wayland
type DaemonConfig struct {
	Binary         string `json:"binary" yaml:"binary"`
	Socket         string `json:"socket" yaml:"socket"`
	Elevator       string `json:"elevator" yaml:"elevator"`
	Dialog         string `json:"dialog" yaml:"dialog"`
	ConnectRetryMs int    `json:"connect_retry_ms" yaml:"connect_retry_ms"`
}

// StatusAPIConfig represents the read-only status server configuration
type StatusAPIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// Bindings parses the configured hotkeys
func (c *Config) Bindings() (hotkey.Bindings, error) {
	return hotkey.ParseBindings(c.Hotkeys.Focus, c.Hotkeys.Close, c.Hotkeys.Visible)
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		LogLevel:          "info",
		LogPretty:         true,
		FrameRate:         30,
		TargetWindowTitle: "pokemmo",
		FollowIntervalMs:  1000,
		Hotkeys: HotkeyConfig{
			Focus:   "Alt+F",
			Close:   "Alt+C",
			Visible: "Alt+V",
		},
		Daemon: DaemonConfig{
			Binary:         hotkey.DefaultDaemonName,
			Socket:         hotkey.DefaultSocketName,
			Elevator:       "pkexec",
			Dialog:         "zenity",
			ConnectRetryMs: 1000,
		},
		StatusAPI: StatusAPIConfig{
			Enabled: false,
			Port:    8091,
		},
	}
}

// fillZero replaces unset fields with their defaults so that a partial
// file still yields a usable config.
func (c *Config) fillZero() {
	d := Defaults()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.FrameRate <= 0 {
		c.FrameRate = d.FrameRate
	}
	if c.TargetWindowTitle == "" {
		c.TargetWindowTitle = d.TargetWindowTitle
	}
	if c.FollowIntervalMs <= 0 {
		c.FollowIntervalMs = d.FollowIntervalMs
	}
	if c.Hotkeys.Focus == "" {
		c.Hotkeys.Focus = d.Hotkeys.Focus
	}
	if c.Hotkeys.Close == "" {
		c.Hotkeys.Close = d.Hotkeys.Close
	}
	if c.Hotkeys.Visible == "" {
		c.Hotkeys.Visible = d.Hotkeys.Visible
	}
	if c.Daemon.Binary == "" {
		c.Daemon.Binary = d.Daemon.Binary
	}
	if c.Daemon.Socket == "" {
		c.Daemon.Socket = d.Daemon.Socket
	}
	if c.Daemon.Elevator == "" {
		c.Daemon.Elevator = d.Daemon.Elevator
	}
	if c.Daemon.Dialog == "" {
		c.Daemon.Dialog = d.Daemon.Dialog
	}
	if c.Daemon.ConnectRetryMs <= 0 {
		c.Daemon.ConnectRetryMs = d.Daemon.ConnectRetryMs
	}
	if c.StatusAPI.Port == 0 {
		c.StatusAPI.Port = d.StatusAPI.Port
	}
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/focusoverlay/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "focusoverlay", "config.yaml"), nil
}

// NewManager creates a new configuration manager. A missing file is created
// with the defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Bool("disable_overlay", m.config.DisableOverlay).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillZero()

	if _, err := cfg.Bindings(); err != nil {
		return fmt.Errorf("invalid hotkeys: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Reload re-reads the file and returns the new configuration
func (m *Manager) Reload() (*Config, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	return m.Get(), nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// Update updates the entire configuration
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// GetPort gets the status API port
func (m *Manager) GetPort() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.StatusAPI.Port
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// field binds a dotted key to a Config field
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error {
			if v == "" {
				return errors.New("value must not be empty")
			}
			*p(c) = v
			return nil
		},
	}
}

func boolField(p func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*p(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", v)
			}
			*p(c) = b
			return nil
		},
	}
}

func intField(p func(*Config) *int, min, max int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("expected an integer, got %q", v)
			}
			if n < min || n > max {
				return fmt.Errorf("%d is outside %d..%d", n, min, max)
			}
			*p(c) = n
			return nil
		},
	}
}

func bindingField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error {
			b, err := hotkey.ParseBinding(v)
			if err != nil {
				return err
			}
			*p(c) = b.String()
			return nil
		},
	}
}

func levelField() field {
	return field{
		get: func(c *Config) string { return c.LogLevel },
		set: func(c *Config, v string) error {
			switch strings.ToLower(v) {
			case "debug", "info", "warn", "error":
				c.LogLevel = strings.ToLower(v)
				return nil
			default:
				return fmt.Errorf("invalid log level %q (use debug, info, warn or error)", v)
			}
		},
	}
}

var fields = map[string]field{
	"log_level":                     levelField(),
	"log_pretty":                    boolField(func(c *Config) *bool { return &c.LogPretty }),
	"disable_overlay":               boolField(func(c *Config) *bool { return &c.DisableOverlay }),
	"transparent_background_always": boolField(func(c *Config) *bool { return &c.TransparentBackgroundAlways }),
	"frame_rate":                    intField(func(c *Config) *int { return &c.FrameRate }, 1, 240),
	"target_window_title":           stringField(func(c *Config) *string { return &c.TargetWindowTitle }),
	"follow_interval_ms":            intField(func(c *Config) *int { return &c.FollowIntervalMs }, 50, 60000),
	"hotkeys.focus":                 bindingField(func(c *Config) *string { return &c.Hotkeys.Focus }),
	"hotkeys.close":                 bindingField(func(c *Config) *string { return &c.Hotkeys.Close }),
	"hotkeys.visible":               bindingField(func(c *Config) *string { return &c.Hotkeys.Visible }),
	"daemon.binary":                 stringField(func(c *Config) *string { return &c.Daemon.Binary }),
	"daemon.socket":                 stringField(func(c *Config) *string { return &c.Daemon.Socket }),
	"daemon.elevator":               stringField(func(c *Config) *string { return &c.Daemon.Elevator }),
	"daemon.dialog":                 stringField(func(c *Config) *string { return &c.Daemon.Dialog }),
	"daemon.connect_retry_ms":       intField(func(c *Config) *int { return &c.Daemon.ConnectRetryMs }, 10, 60000),
	"status_api.enabled":            boolField(func(c *Config) *bool { return &c.StatusAPI.Enabled }),
	"status_api.port":               intField(func(c *Config) *int { return &c.StatusAPI.Port }, 1, 65535),
}

// Keys returns every settable key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the string form of a single setting
func (m *Manager) Lookup(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return f.get(m.config), nil
}

// Set validates and stores a single setting, then saves the file
func (m *Manager) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	m.mu.Lock()
	cfg := *m.config
	if err := f.set(&cfg, strings.TrimSpace(value)); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	m.config = &cfg
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("key", key).
		Str("value", value).
		Msg("Config value updated")

	return m.Save()
}
