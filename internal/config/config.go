// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Display connection configuration
	Display DisplayConfig `mapstructure:"display"`

	// Keyboard / keymap configuration
	Keyboard KeyboardConfig `mapstructure:"keyboard"`

	// Watch UI configuration
	Watch WatchConfig `mapstructure:"watch"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DisplayConfig contains display-server connection settings
type DisplayConfig struct {
	Endpoint        string `mapstructure:"endpoint"`         // Socket path or display name; empty means $WAYLAND_DISPLAY
	DispatchTimeout int    `mapstructure:"dispatch_timeout"` // RunOnce timeout in milliseconds
	RoundtripLimit  int    `mapstructure:"roundtrip_limit"`  // Max dispatch iterations per roundtrip
}

// KeyboardConfig contains keymap resolver settings
type KeyboardConfig struct {
	FallbackKeymap string `mapstructure:"fallback_keymap"` // Path to an XKB keymap file used when the seat sends none
}

// WatchConfig contains settings for the live key-event viewer
type WatchConfig struct {
	HistorySize int  `mapstructure:"history_size"` // Number of key events kept on screen
	ShowText    bool `mapstructure:"show_text"`    // Show decoded UTF-8 text next to keysyms
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogLevel    string `mapstructure:"log_level"`    // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Display: DisplayConfig{
			Endpoint:        "",
			DispatchTimeout: 500,
			RoundtripLimit:  64,
		},
		Keyboard: KeyboardConfig{
			FallbackKeymap: "",
		},
		Watch: WatchConfig{
			HistorySize: 16,
			ShowText:    true,
		},
		Logging: LoggingConfig{
			FileLogging: false,
			LogLevel:    "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wlcore")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "wlcore"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("display.endpoint", DefaultConfig.Display.Endpoint)
	viper.SetDefault("display.dispatch_timeout", DefaultConfig.Display.DispatchTimeout)
	viper.SetDefault("display.roundtrip_limit", DefaultConfig.Display.RoundtripLimit)

	viper.SetDefault("keyboard.fallback_keymap", DefaultConfig.Keyboard.FallbackKeymap)

	viper.SetDefault("watch.history_size", DefaultConfig.Watch.HistorySize)
	viper.SetDefault("watch.show_text", DefaultConfig.Watch.ShowText)

	viper.SetDefault("logging.file_logging", DefaultConfig.Logging.FileLogging)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists. An explicit path that does not
	// exist yet surfaces as a plain not-exist error rather than
	// viper's not-found type; both mean "use defaults".
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal config
	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Update replaces the current configuration and mirrors it into viper
// so a following Save persists it.
func Update(c *Config) {
	cfg = c

	viper.Set("display.endpoint", c.Display.Endpoint)
	viper.Set("display.dispatch_timeout", c.Display.DispatchTimeout)
	viper.Set("display.roundtrip_limit", c.Display.RoundtripLimit)

	viper.Set("keyboard.fallback_keymap", c.Keyboard.FallbackKeymap)

	viper.Set("watch.history_size", c.Watch.HistorySize)
	viper.Set("watch.show_text", c.Watch.ShowText)

	viper.Set("logging.file_logging", c.Logging.FileLogging)
	viper.Set("logging.log_level", c.Logging.LogLevel)
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	// If override is set, use that
	if configPathOverride != "" {
		return configPathOverride
	}

	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "wlcore.toml")
	}

	return filepath.Join(home, ".config", "wlcore", "wlcore.toml")
}
